package proxmox

// Node represents an entry from GET /nodes.
type Node struct {
	Node    string  `json:"node"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  int     `json:"maxcpu"`
	Mem     uint64  `json:"mem"`
	MaxMem  uint64  `json:"maxmem"`
	Disk    uint64  `json:"disk"`
	MaxDisk uint64  `json:"maxdisk"`
	Uptime  int64   `json:"uptime"`
}

// NodeStatus represents GET /nodes/{node}/status.
type NodeStatus struct {
	Uptime  int64 `json:"uptime"`
	CPUInfo struct {
		CPUs    int    `json:"cpus"`
		Model   string `json:"model"`
		Sockets int    `json:"sockets"`
	} `json:"cpuinfo"`
	Memory struct {
		Total uint64 `json:"total"`
		Used  uint64 `json:"used"`
		Free  uint64 `json:"free"`
	} `json:"memory"`
	RootFS struct {
		Total uint64 `json:"total"`
		Used  uint64 `json:"used"`
		Avail uint64 `json:"avail"`
	} `json:"rootfs"`
	KVersion   string `json:"kversion"`
	PVEVersion string `json:"pveversion"`
}

// Guest represents an entry from GET /nodes/{node}/qemu or .../lxc.
type Guest struct {
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	CPU      float64 `json:"cpu"`
	CPUs     int     `json:"cpus"`
	Mem      uint64  `json:"mem"`
	MaxMem   uint64  `json:"maxmem"`
	Disk     uint64  `json:"disk"`
	MaxDisk  uint64  `json:"maxdisk"`
	Uptime   int64   `json:"uptime"`
	Template int     `json:"template,omitempty"`
}

// Storage represents an entry from GET /nodes/{node}/storage.
type Storage struct {
	Storage      string  `json:"storage"`
	Type         string  `json:"type"`
	Content      string  `json:"content"`
	Active       int     `json:"active"`
	Enabled      int     `json:"enabled"`
	Shared       int     `json:"shared"`
	Total        uint64  `json:"total"`
	Used         uint64  `json:"used"`
	Avail        uint64  `json:"avail"`
	UsedFraction float64 `json:"used_fraction"`
}

// StorageContent represents an entry from GET /nodes/{node}/storage/{storage}/content.
type StorageContent struct {
	VolID   string `json:"volid"`
	Content string `json:"content"`
	Format  string `json:"format"`
	Size    uint64 `json:"size"`
	CTime   int64  `json:"ctime"`
	VMID    int    `json:"vmid"`
	Notes   string `json:"notes"`
}

// Snapshot represents an entry from GET /nodes/{node}/{type}/{vmid}/snapshot.
// Listings include a reserved "current" pseudo-entry for the live state.
type Snapshot struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	SnapTime    int64  `json:"snaptime"`
	Parent      string `json:"parent"`
	VMState     int    `json:"vmstate"`
}

// CurrentSnapshotName is the sentinel entry PVE injects into snapshot
// listings to represent the live, unsnapshotted state.
const CurrentSnapshotName = "current"

// ClusterStatusEntry represents an entry from GET /cluster/status.
type ClusterStatusEntry struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Type    string `json:"type"` // "cluster" or "node"
	Online  int    `json:"online"`
	Quorate int    `json:"quorate"`
	Local   int    `json:"local"`
	IP      string `json:"ip"`
	Level   string `json:"level"`
	NodeID  int    `json:"nodeid"`
	Nodes   int    `json:"nodes"`
}

// ClusterResource represents an entry from GET /cluster/resources.
type ClusterResource struct {
	ID      string  `json:"id"`
	Type    string  `json:"type"` // "node", "qemu", "lxc", "storage"
	Node    string  `json:"node"`
	VMID    int     `json:"vmid"`
	Name    string  `json:"name"`
	Status  string  `json:"status"`
	CPU     float64 `json:"cpu"`
	MaxCPU  int     `json:"maxcpu"`
	Mem     uint64  `json:"mem"`
	MaxMem  uint64  `json:"maxmem"`
	Disk    uint64  `json:"disk"`
	MaxDisk uint64  `json:"maxdisk"`
	Uptime  int64   `json:"uptime"`
	Pool    string  `json:"pool"`
	Storage string  `json:"storage"`
}

// TaskStatus represents GET /nodes/{node}/tasks/{upid}/status.
type TaskStatus struct {
	UPID       string `json:"upid"`
	Node       string `json:"node"`
	Type       string `json:"type"`
	Status     string `json:"status"` // "running" or "stopped"
	ExitStatus string `json:"exitstatus"`
	User       string `json:"user"`
	StartTime  int64  `json:"starttime"`
	PID        int    `json:"pid"`
}
