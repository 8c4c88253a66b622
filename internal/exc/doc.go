// Package exc owns the managed execution context (EXC).
//
// Ownership boundary:
//   - Client: the capability surface the command dispatcher consumes.
//   - Workload: the seven lifecycle hooks, invoked in a fixed order.
//   - Manager: the external resource manager; it assigns working modes and
//     decides suspend/resume/release. Its policy is not implemented here.
//   - Context: a local Client that drives a Workload through ControlLoop.
//
// Lifecycle order:
//
//	OnSetup -> OnConfigure(awm) -> [OnSuspend <-> OnResume]* -> OnRun -> OnMonitor -> OnRelease
//
// OnRun and OnMonitor repeat once per cycle. A hook fault does not stop the
// sequence; only the manager (or EXC_WORKLOAD_NONE from the workload) ends it.
//
// All Context state and every hook invocation share one mutex, so a command
// and a hook never observe each other half way.
package exc
