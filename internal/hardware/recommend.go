package hardware

import (
	"context"
	"fmt"
	"runtime"
	"strings"
)

// Recommendation names the acceleration backend the servers should use and
// whether everything it needs is already installed.
type Recommendation struct {
	Backend Backend `json:"backend"`
	Reason  string  `json:"reason"`
	Ready   bool    `json:"ready"`
	Hint    string  `json:"hint,omitempty"`
}

// SystemInfo is the static platform summary shown in the UI.
type SystemInfo struct {
	OS       string `json:"os"`
	Arch     string `json:"arch"`
	NumCPU   int    `json:"num_cpu"`
	GoString string `json:"go_version"`
}

// Status bundles everything the hardware endpoint reports.
type Status struct {
	System      SystemInfo     `json:"system"`
	GPUs        Report         `json:"gpus"`
	Available   []Backend      `json:"available_backends"`
	Recommended Recommendation `json:"recommended"`
}

// CUDAAvailable reports whether the NVIDIA driver stack responds.
func (d *Detector) CUDAAvailable(ctx context.Context) bool {
	out, err := d.run(ctx, "nvidia-smi", "--query-gpu=name", "--format=csv,noheader")
	return err == nil && strings.TrimSpace(out) != ""
}

// Recommended picks the best available backend in fixed priority order:
// Metal on Apple Silicon, then working CUDA, then detected-but-unready CUDA,
// then Vulkan for AMD/Intel, then CPU.
func (d *Detector) Recommended(ctx context.Context) Recommendation {
	report := d.GPUs(ctx)

	if d.goos == "darwin" && d.arch == "arm64" {
		return Recommendation{
			Backend: BackendMetal,
			Reason:  "Apple Silicon GPU detected",
			Ready:   true,
		}
	}

	hasNVIDIA := false
	hasAMD := false
	hasIntel := false
	for _, gpu := range report.GPUs {
		switch gpu.Vendor {
		case VendorNVIDIA:
			hasNVIDIA = true
		case VendorAMD:
			hasAMD = true
		case VendorIntel:
			hasIntel = true
		}
	}

	if hasNVIDIA {
		if d.CUDAAvailable(ctx) {
			return Recommendation{
				Backend: BackendCUDA,
				Reason:  "NVIDIA GPU with working driver detected",
				Ready:   true,
			}
		}
		return Recommendation{
			Backend: BackendCUDA,
			Reason:  "NVIDIA GPU detected but driver is not responding",
			Ready:   false,
			Hint:    "Install the NVIDIA driver and CUDA toolkit to enable GPU acceleration",
		}
	}
	if hasAMD {
		return Recommendation{
			Backend: BackendVulkan,
			Reason:  "AMD GPU detected",
			Ready:   true,
		}
	}
	if hasIntel {
		return Recommendation{
			Backend: BackendVulkan,
			Reason:  "Intel GPU detected",
			Ready:   true,
		}
	}

	return Recommendation{
		Backend: BackendCPU,
		Reason:  "no supported GPU detected",
		Ready:   true,
	}
}

// System returns static platform facts; no probing involved.
func (d *Detector) System() SystemInfo {
	return SystemInfo{
		OS:       d.goos,
		Arch:     d.arch,
		NumCPU:   runtime.NumCPU(),
		GoString: runtime.Version(),
	}
}

// AvailableBackends lists every backend some detected adapter supports,
// de-duplicated, with CPU always last.
func (d *Detector) AvailableBackends(ctx context.Context) []Backend {
	seen := make(map[Backend]bool)
	var available []Backend
	for _, gpu := range d.GPUs(ctx).GPUs {
		for _, b := range gpu.Supports {
			if b == BackendCPU || seen[b] {
				continue
			}
			seen[b] = true
			available = append(available, b)
		}
	}
	return append(available, BackendCPU)
}

// FullStatus runs every probe and returns the combined report.
func (d *Detector) FullStatus(ctx context.Context) Status {
	return Status{
		System:      d.System(),
		GPUs:        d.GPUs(ctx),
		Available:   d.AvailableBackends(ctx),
		Recommended: d.Recommended(ctx),
	}
}

// String implements fmt.Stringer for log lines.
func (r Recommendation) String() string {
	return fmt.Sprintf("%s (ready=%t): %s", r.Backend, r.Ready, r.Reason)
}
