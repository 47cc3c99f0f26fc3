package strategy

import "github.com/driftlock/actorsched"

// mkMachines returns n fixture MachineInfo values with dense ids 1..n,
// built through a throwaway Scheduler registration (the only exported way
// to obtain a *MachineInfo) since strategies never construct their own.
func mkMachines(n int) []*actorsched.MachineInfo {
	sched := actorsched.NewScheduler(nil, nil)
	out := make([]*actorsched.MachineInfo, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, sched.NotifyNewTaskCreated(sched.NewWorkerHandle(), ""))
	}
	return out
}
