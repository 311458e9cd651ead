package fly

// App is a named deployment namespace owning machines, volumes, IP
// addresses, and secrets.
type App struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Machine observed states as reported by the platform. Transitions are
// platform-driven; this client only ever reads them.
const (
	MachineStateCreated    = "created"
	MachineStateStarting   = "starting"
	MachineStateStarted    = "started"
	MachineStateStopping   = "stopping"
	MachineStateStopped    = "stopped"
	MachineStateDestroying = "destroying"
	MachineStateDestroyed  = "destroyed"
	MachineStateFailed     = "failed"
)

// Machine is a remotely managed VM instance.
type Machine struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	State      string        `json:"state"`
	Region     string        `json:"region"`
	InstanceID string        `json:"instance_id"`
	Config     MachineConfig `json:"config"`
	CreatedAt  string        `json:"created_at"`
	UpdatedAt  string        `json:"updated_at"`
	HostStatus string        `json:"host_status,omitempty"`
}

// MachineConfig is the desired configuration of a machine.
type MachineConfig struct {
	Image       string            `json:"image" validate:"required"`
	Guest       *GuestConfig      `json:"guest,omitempty"`
	Env         map[string]string `json:"env,omitempty"`
	Init        *InitConfig       `json:"init,omitempty"`
	Restart     *MachineRestart   `json:"restart,omitempty"`
	StopConfig  *StopConfig       `json:"stop_config,omitempty"`
	Mounts      []Mount           `json:"mounts,omitempty"`
	Services    []ServiceConfig   `json:"services,omitempty"`
	AutoDestroy bool              `json:"auto_destroy,omitempty"`
}

// GuestConfig sizes the guest VM.
type GuestConfig struct {
	CPUKind    string   `json:"cpu_kind,omitempty" validate:"omitempty,oneof=shared performance"`
	CPUs       int      `json:"cpus,omitempty" validate:"omitempty,min=1"`
	MemoryMB   int      `json:"memory_mb,omitempty" validate:"omitempty,min=1"`
	KernelArgs []string `json:"kernel_args,omitempty"`
}

// InitConfig overrides the machine's init process.
type InitConfig struct {
	Cmd        []string `json:"cmd,omitempty"`
	Entrypoint []string `json:"entrypoint,omitempty"`
	Exec       []string `json:"exec,omitempty"`
	KernelArgs []string `json:"kernel_args,omitempty"`
	SwapSizeMB int      `json:"swap_size_mb,omitempty"`
	TTY        bool     `json:"tty,omitempty"`
}

// MachineRestart configures the platform restart policy.
type MachineRestart struct {
	Policy     string `json:"policy" validate:"required,oneof=no always on-failure"`
	MaxRetries int    `json:"max_retries,omitempty"`
}

// StopConfig tunes how the platform stops the machine.
type StopConfig struct {
	Signal  string `json:"signal,omitempty"`
	Timeout int    `json:"timeout,omitempty"`
}

// Mount attaches a volume to a path inside the machine. The volume
// must live in the machine's region.
type Mount struct {
	Volume string `json:"volume" validate:"required"`
	Path   string `json:"path" validate:"required"`
}

// ServiceConfig exposes a machine port through the platform proxy.
type ServiceConfig struct {
	InternalPort int          `json:"internal_port" validate:"required,min=1,max=65535"`
	Protocol     string       `json:"protocol" validate:"required,oneof=tcp udp"`
	Ports        []PortConfig `json:"ports,omitempty" validate:"dive"`
}

// PortConfig is an edge port mapping with its protocol handlers.
type PortConfig struct {
	Port     int      `json:"port" validate:"required,min=1,max=65535"`
	Handlers []string `json:"handlers,omitempty" validate:"dive,oneof=http tls edge_http pg_tls proxy_proto"`
}

// ExecResult is the outcome of a command executed inside a machine.
type ExecResult struct {
	ExitCode   *int   `json:"exit_code,omitempty"`
	ExitSignal *int   `json:"exit_signal,omitempty"`
	Stdout     string `json:"stdout,omitempty"`
	Stderr     string `json:"stderr,omitempty"`
}

// Volume is persistent block storage attachable to one machine.
type Volume struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	State             string `json:"state"`
	SizeGB            int    `json:"size_gb"`
	Region            string `json:"region"`
	Zone              string `json:"zone,omitempty"`
	Encrypted         bool   `json:"encrypted"`
	AttachedMachineID string `json:"attached_machine_id,omitempty"`
	CreatedAt         string `json:"created_at"`
}

// VolumeCreateRequest describes a volume to create.
type VolumeCreateRequest struct {
	Name   string `json:"name" validate:"required"`
	Region string `json:"region" validate:"required"`
	SizeGB int    `json:"size_gb" validate:"required,min=1"`
}

// IP address families accepted by the allocation endpoint.
const (
	IPTypeV4        = "v4"
	IPTypeSharedV4  = "shared_v4"
	IPTypeV6        = "v6"
	IPTypePrivateV6 = "private_v6"
)

// IPRequest describes an address to allocate.
type IPRequest struct {
	Type   string `json:"type" validate:"required,oneof=v4 shared_v4 v6 private_v6"`
	Region string `json:"region,omitempty"`
}

// IPAddress is an allocated address. Region is empty for global and
// private allocations.
type IPAddress struct {
	Address string `json:"ip"`
	Type    string `json:"type"`
	Region  string `json:"region,omitempty"`
}

// Secret is a stored secret key. Values are write-only: the platform
// returns only the name and a digest of the value.
type Secret struct {
	Name   string `json:"name"`
	Digest string `json:"digest,omitempty"`
}
