package exc

//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/mattjoyce/excbridge/internal/exc Client

// Client is the execution-context capability the dispatcher depends on.
// Failing operations return a *status.Fault.
type Client interface {
	IsRegistered() bool
	Start() error
	WaitCompletion() error
	Terminate() error
	Enable() error
	Disable() error
	UniqueID() int
	SetCPS(cps float32) error
	CycleTimeMicros() int
	Cycles() int
	Done() bool
	CurrentAWM() int
}

// Workload is the managed work, called back by the control loop.
type Workload interface {
	OnSetup() error
	OnConfigure(awm int) error
	OnSuspend() error
	OnResume() error
	OnRun() error
	OnMonitor() error
	OnRelease() error
}
