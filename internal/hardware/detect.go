package hardware

import (
	"context"
	"log"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Vendor identifies a GPU maker from probe output.
type Vendor string

const (
	VendorNVIDIA  Vendor = "nvidia"
	VendorAMD     Vendor = "amd"
	VendorIntel   Vendor = "intel"
	VendorApple   Vendor = "apple"
	VendorUnknown Vendor = "unknown"
)

// Backend is an acceleration option for the inference servers.
type Backend string

const (
	BackendCUDA   Backend = "cuda"
	BackendMetal  Backend = "metal"
	BackendROCm   Backend = "rocm"
	BackendVulkan Backend = "vulkan"
	BackendCPU    Backend = "cpu"
)

// GPU is one detected adapter.
type GPU struct {
	Name     string    `json:"name"`
	Vendor   Vendor    `json:"vendor"`
	Supports []Backend `json:"supports"`
}

// Report aggregates the probe results.
type Report struct {
	GPUs            []GPU  `json:"gpus"`
	PrimaryVendor   Vendor `json:"primary_vendor"`
	HasDedicatedGPU bool   `json:"has_dedicated_gpu"`
}

const cacheTTL = 5 * time.Minute

// commandRunner is swappable in tests.
type commandRunner func(ctx context.Context, name string, args ...string) (string, error)

func runCommand(ctx context.Context, name string, args ...string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}

// Detector probes the platform's GPU inventory by shelling out to OS tools
// and pattern-matching vendor names in their output. Results are cached to
// avoid repeated subprocess cost; this is best-effort string matching, not
// a verified hardware query.
type Detector struct {
	goos string
	arch string
	run  commandRunner

	mu       sync.Mutex
	cached   *Report
	cachedAt time.Time
}

func NewDetector() *Detector {
	return &Detector{
		goos: runtime.GOOS,
		arch: runtime.GOARCH,
		run:  runCommand,
	}
}

// GPUs returns the detected adapters, from cache when fresh.
func (d *Detector) GPUs(ctx context.Context) Report {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.cached != nil && time.Since(d.cachedAt) < cacheTTL {
		return *d.cached
	}

	report := d.detect(ctx)
	d.cached = &report
	d.cachedAt = time.Now()
	return report
}

func (d *Detector) detect(ctx context.Context) Report {
	var report Report

	switch d.goos {
	case "darwin":
		out, err := d.run(ctx, "system_profiler", "SPDisplaysDataType")
		if err != nil {
			out = ""
		}
		report = parseDarwinDisplays(out, d.arch)
	case "windows":
		out, err := d.run(ctx, "powershell", "-Command",
			"Get-CimInstance Win32_VideoController | Select-Object -ExpandProperty Name")
		if err != nil {
			// PowerShell can be restricted; fall back to the deprecated wmic.
			out, err = d.run(ctx, "wmic", "path", "win32_VideoController", "get", "name")
			if err != nil {
				out = ""
			}
		}
		report = parseWindowsControllers(out)
	case "linux":
		out, err := d.run(ctx, "lspci", "-v")
		if err != nil {
			out = ""
		}
		report = parseLspci(out)
	}

	if report.GPUs == nil {
		report.GPUs = []GPU{}
	}
	if report.PrimaryVendor == "" {
		report.PrimaryVendor = VendorUnknown
	}
	report.HasDedicatedGPU = len(report.GPUs) > 0

	log.Printf("[hardware] detected %d gpu(s), primary vendor %s", len(report.GPUs), report.PrimaryVendor)
	return report
}

func parseDarwinDisplays(output, arch string) Report {
	var report Report
	report.PrimaryVendor = VendorUnknown
	lower := strings.ToLower(output)

	switch {
	case strings.Contains(lower, "apple") || arch == "arm64":
		report.GPUs = append(report.GPUs, GPU{
			Name:     "Apple Silicon GPU",
			Vendor:   VendorApple,
			Supports: []Backend{BackendMetal},
		})
		report.PrimaryVendor = VendorApple
	case strings.Contains(lower, "amd") || strings.Contains(lower, "radeon"):
		// Intel-Mac AMD cards have no usable acceleration path here.
		report.GPUs = append(report.GPUs, GPU{
			Name:     "AMD GPU",
			Vendor:   VendorAMD,
			Supports: []Backend{BackendCPU},
		})
		report.PrimaryVendor = VendorAMD
	}
	return report
}

func parseWindowsControllers(output string) Report {
	var report Report
	report.PrimaryVendor = VendorUnknown

	for _, line := range strings.Split(output, "\n") {
		name := strings.TrimSpace(line)
		if name == "" || strings.EqualFold(name, "name") {
			continue
		}

		lower := strings.ToLower(name)
		switch {
		case strings.Contains(lower, "nvidia") || strings.Contains(lower, "geforce") ||
			strings.Contains(lower, "rtx") || strings.Contains(lower, "gtx"):
			report.GPUs = append(report.GPUs, GPU{
				Name:     name,
				Vendor:   VendorNVIDIA,
				Supports: []Backend{BackendCUDA, BackendVulkan},
			})
			report.PrimaryVendor = VendorNVIDIA
		case strings.Contains(lower, "amd") || strings.Contains(lower, "radeon"):
			report.GPUs = append(report.GPUs, GPU{
				Name:     name,
				Vendor:   VendorAMD,
				Supports: []Backend{BackendVulkan},
			})
			if report.PrimaryVendor == VendorUnknown {
				report.PrimaryVendor = VendorAMD
			}
		case strings.Contains(lower, "intel"):
			report.GPUs = append(report.GPUs, GPU{
				Name:     name,
				Vendor:   VendorIntel,
				Supports: []Backend{BackendVulkan},
			})
			if report.PrimaryVendor == VendorUnknown {
				report.PrimaryVendor = VendorIntel
			}
		}
	}
	return report
}

func parseLspci(output string) Report {
	var report Report
	report.PrimaryVendor = VendorUnknown

	for _, line := range strings.Split(output, "\n") {
		lower := strings.ToLower(line)
		if !strings.Contains(lower, "vga compatible controller") &&
			!strings.Contains(lower, "3d controller") &&
			!strings.Contains(lower, "display controller") {
			continue
		}

		name := strings.TrimSpace(line)
		if _, after, ok := strings.Cut(line, ": "); ok {
			name = strings.TrimSpace(after)
		}

		switch {
		case strings.Contains(lower, "nvidia"):
			report.GPUs = append(report.GPUs, GPU{
				Name:     name,
				Vendor:   VendorNVIDIA,
				Supports: []Backend{BackendCUDA, BackendVulkan},
			})
			report.PrimaryVendor = VendorNVIDIA
		case strings.Contains(lower, "amd") || strings.Contains(lower, "radeon"):
			report.GPUs = append(report.GPUs, GPU{
				Name:     name,
				Vendor:   VendorAMD,
				Supports: []Backend{BackendROCm, BackendVulkan},
			})
			if report.PrimaryVendor == VendorUnknown {
				report.PrimaryVendor = VendorAMD
			}
		case strings.Contains(lower, "intel"):
			report.GPUs = append(report.GPUs, GPU{
				Name:     name,
				Vendor:   VendorIntel,
				Supports: []Backend{BackendVulkan},
			})
			if report.PrimaryVendor == VendorUnknown {
				report.PrimaryVendor = VendorIntel
			}
		}
	}
	return report
}
