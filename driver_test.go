package actorsched_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/driftlock/actorsched"
	"github.com/driftlock/actorsched/strategy"
)

// pingPong is a minimal two-machine exchange: A creates B, hands it one
// message, and waits for exactly one reply. At every scheduling point in
// this program there is only ever one runnable candidate, so its outcome
// is independent of which Strategy drives it — useful as a baseline that
// must terminate cleanly under any strategy.
func pingPong(rt *actorsched.Runtime) {
	ping := make(chan struct{}, 1)
	pong := make(chan struct{}, 1)

	rt.CreateMachine("A", func(rt *actorsched.Runtime, aID actorsched.MachineID) {
		rt.CreateMachine("B", func(rt *actorsched.Runtime, bID actorsched.MachineID) {
			<-ping
			pong <- struct{}{}
			rt.NotifyPeerReceivedEvent(aID)
		})
		ping <- struct{}{}
		rt.BlockOnReceive(aID)
		<-pong
	})
}

func TestPingPong_RandomStrategy_100Iterations(t *testing.T) {
	cfg := actorsched.NewConfig(actorsched.WithIterations(100), actorsched.WithSeed(7))
	// NewRandom(0) here stands in for "whatever seed the caller happens to
	// construct with" — WithSeed is what actually pins reproducibility,
	// via the strategy's Seedable implementation.
	driver := actorsched.NewIterationDriver(strategy.NewRandom(0), cfg, pingPong)

	report := driver.Run()

	require.Equal(t, 0, report.NumBugs)
	require.Equal(t, 100, report.NumExploredUnfair)
}

func TestWithSeed_ReseedsStrategyThroughSeedable(t *testing.T) {
	cfg := actorsched.NewConfig(actorsched.WithIterations(1), actorsched.WithSeed(1234))
	r := strategy.NewRandom(0)
	_ = actorsched.NewIterationDriver(r, cfg, pingPong)

	reseeded := strategy.NewRandom(1234)
	require.Equal(t, reseeded.Description(), r.Description())
}

// raceOfThree registers three machines directly from the entry point, each
// yielding a handful of times — at most scheduling points all three are
// simultaneously runnable, so the resulting trace genuinely depends on the
// strategy's choices (unlike pingPong's single-candidate chain).
func raceOfThree(rt *actorsched.Runtime) {
	body := func(rt *actorsched.Runtime, id actorsched.MachineID) {
		for i := 0; i < 3; i++ {
			rt.Yield(id)
		}
	}
	rt.CreateMachine("m1", body)
	rt.CreateMachine("m2", body)
	rt.CreateMachine("m3", body)
}

func TestReplay_ReproducesRecordedTrace(t *testing.T) {
	var recordedSched *actorsched.Scheduler
	cfg := actorsched.NewConfig(actorsched.WithIterations(1))
	driver := actorsched.NewIterationDriver(strategy.NewRandom(42), cfg, func(rt *actorsched.Runtime) {
		recordedSched = rt.Scheduler()
		raceOfThree(rt)
	})
	firstReport := driver.Run()
	require.Equal(t, 0, firstReport.NumBugs)

	recorded := recordedSched.Trace().Entries()
	require.NotEmpty(t, recorded)

	var replaySched *actorsched.Scheduler
	replayCfg := actorsched.NewConfig(actorsched.WithIterations(1))
	replayDriver := actorsched.NewIterationDriver(strategy.NewReplay(recorded), replayCfg, func(rt *actorsched.Runtime) {
		replaySched = rt.Scheduler()
		raceOfThree(rt)
	})
	secondReport := replayDriver.Run()

	require.Equal(t, 0, secondReport.NumBugs)
	require.Equal(t, recorded, replaySched.Trace().Entries())
}
