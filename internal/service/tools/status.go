package tools

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"os"
	"strconv"
	"strings"
)

func dataURL(png []byte) string {
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
}

// systemStatus reads load and memory figures from procfs.
func systemStatus() (string, error) {
	load, err := readLoadAvg()
	if err != nil {
		return "", fmt.Errorf("failed to read system load: %w", err)
	}
	total, available, err := readMemInfo()
	if err != nil {
		return "", fmt.Errorf("failed to read memory info: %w", err)
	}

	used := total - available
	percent := 0.0
	if total > 0 {
		percent = float64(used) / float64(total) * 100
	}
	return fmt.Sprintf("CPU load (1m): %.2f\nRAM Usage: %.0f%% (%dGB used)",
		load, percent, used/(1024*1024)), nil
}

func readLoadAvg() (float64, error) {
	raw, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(raw))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty loadavg")
	}
	return strconv.ParseFloat(fields[0], 64)
}

// readMemInfo returns total and available memory in KiB.
func readMemInfo() (total, available int64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) < 2 {
			continue
		}
		val, parseErr := strconv.ParseInt(fields[1], 10, 64)
		if parseErr != nil {
			continue
		}
		switch fields[0] {
		case "MemTotal:":
			total = val
		case "MemAvailable:":
			available = val
		}
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("MemTotal missing from /proc/meminfo")
	}
	return total, available, scanner.Err()
}
