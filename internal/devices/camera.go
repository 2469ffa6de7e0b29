package devices

import (
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

const defaultSysfsVideoDir = "/sys/class/video4linux"

// listCameras enumerates /dev/video* nodes. Labels come from sysfs; nodes
// that sysfs marks as secondary interfaces of the same physical camera
// (index > 0, typically metadata streams) are skipped.
func listCameras(devGlob, sysfsDir string) ([]Camera, error) {
	matches, err := filepath.Glob(devGlob)
	if err != nil {
		return nil, err
	}

	var cameras []Camera
	for _, device := range matches {
		base := filepath.Base(device)
		if !strings.HasPrefix(base, "video") {
			continue
		}
		if idx, ok := readSysfsInt(filepath.Join(sysfsDir, base, "index")); ok && idx > 0 {
			continue
		}
		cameras = append(cameras, Camera{
			Device: device,
			Label:  readSysfsLabel(filepath.Join(sysfsDir, base, "name")),
		})
	}

	sort.Slice(cameras, func(i, j int) bool {
		return videoNodeOrder(cameras[i].Device) < videoNodeOrder(cameras[j].Device)
	})
	return cameras, nil
}

func readSysfsLabel(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

func readSysfsInt(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	value, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return value, true
}

// videoNodeOrder sorts /dev/video10 after /dev/video2.
func videoNodeOrder(device string) int {
	digits := strings.TrimPrefix(filepath.Base(device), "video")
	order, err := strconv.Atoi(digits)
	if err != nil {
		return 1 << 30
	}
	return order
}
