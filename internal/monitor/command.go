package monitor

import (
	"strings"
)

// Platform represents the operating system family of a remote host.
type Platform string

const (
	// PlatformLinux indicates a Linux host.
	PlatformLinux Platform = "linux"
	// PlatformDarwin indicates a macOS host.
	PlatformDarwin Platform = "darwin"
	// PlatformWindows indicates a Windows host running OpenSSH.
	PlatformWindows Platform = "windows"
	// PlatformUnknown indicates the probe gave no usable answer.
	PlatformUnknown Platform = "unknown"
)

// PlatformDetectCommand identifies the OS family in a single round trip.
// Unix shells answer uname; cmd.exe fails uname and falls through to ver.
const PlatformDetectCommand = "uname -s || ver"

// LivenessCommand is the no-op used to check a pooled connection still works.
const LivenessCommand = "echo ok"

// ParsePlatform converts the detect command output to a Platform value.
func ParsePlatform(output string) Platform {
	out := strings.ToLower(strings.TrimSpace(output))
	switch {
	case strings.Contains(out, "windows"):
		return PlatformWindows
	case strings.HasPrefix(out, "darwin"):
		return PlatformDarwin
	case strings.HasPrefix(out, "linux"):
		return PlatformLinux
	default:
		return PlatformUnknown
	}
}

// MetricCommandSet yields the command that prints one resource's usage
// percentage for a given OS family. Selected once per connection.
type MetricCommandSet interface {
	Platform() Platform
	Command(r Resource) string
}

type commandSet struct {
	platform Platform
	commands map[Resource]string
}

func (c *commandSet) Platform() Platform {
	return c.platform
}

func (c *commandSet) Command(r Resource) string {
	return c.commands[r]
}

// diskCommandPOSIX prints the used percentage of the root filesystem.
const diskCommandPOSIX = `df -P / | awk 'NR==2 {gsub("%","",$5); print $5}'`

var linuxCommands = &commandSet{
	platform: PlatformLinux,
	commands: map[Resource]string{
		// vmstat's second report covers the last second; column 15 is idle.
		ResourceCPU:  `vmstat 1 2 | tail -1 | awk '{print 100 - $15}'`,
		ResourceRAM:  `free | awk '/^Mem:/ {printf "%.1f\n", $3/$2*100}'`,
		ResourceDisk: diskCommandPOSIX,
	},
}

var darwinCommands = &commandSet{
	platform: PlatformDarwin,
	commands: map[Resource]string{
		ResourceCPU:  `top -l 2 -n 0 -s 1 | awk '/CPU usage/ {v=$7} END {gsub("%","",v); print 100 - v}'`,
		ResourceRAM:  `memory_pressure | awk '/free percentage/ {gsub("%","",$5); print 100 - $5}'`,
		ResourceDisk: diskCommandPOSIX,
	},
}

var windowsCommands = &commandSet{
	platform: PlatformWindows,
	commands: map[Resource]string{
		ResourceCPU: `powershell -NoProfile -Command "$c=(Get-Counter '\Processor(_Total)\% Processor Time').CounterSamples.CookedValue; Write-Output ([Math]::Round($c,1))"`,
		ResourceRAM: `powershell -NoProfile -Command "$os=Get-CimInstance Win32_OperatingSystem; $u=$os.TotalVisibleMemorySize-$os.FreePhysicalMemory; Write-Output ([Math]::Round($u/$os.TotalVisibleMemorySize*100,1))"`,
		ResourceDisk: `powershell -NoProfile -Command "$d=Get-PSDrive C; Write-Output ([Math]::Round($d.Used/($d.Used+$d.Free)*100,1))"`,
	},
}

// CommandSetFor returns the command set for p. Unknown platforms get the
// Linux set, which fails gracefully into zero readings elsewhere.
func CommandSetFor(p Platform) MetricCommandSet {
	switch p {
	case PlatformDarwin:
		return darwinCommands
	case PlatformWindows:
		return windowsCommands
	default:
		return linuxCommands
	}
}
