package installer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Legacy is what was found of previous installs.
type Legacy struct {
	GreenLumaDir   string
	KoalageddonDir string
	SteamDir       string
}

var (
	greenLumaMarkers   = []string{"DLLInjector.exe", "DLLInjector.ini"}
	koalageddonMarkers = []string{"Koalageddon.exe", "Config.jsonc"}
)

func (i *Installer) detectLegacy(_ context.Context, r *run) error {
	steam := i.cfg.Paths.SteamDir
	if steam == "" {
		p, err := i.deps.SteamPath()
		if err != nil {
			r.report.Warn(fmt.Sprintf("Steam not found: %v", err))
		} else {
			steam = p
		}
	}
	r.legacy.SteamDir = steam

	r.legacy.GreenLumaDir = findInstall(greenLumaCandidates(i.cfg.GreenLuma.LegacyDir, steam), greenLumaMarkers)
	if r.legacy.GreenLumaDir == "" {
		r.report.Warn("no GreenLuma install found, nothing to migrate")
	} else {
		r.log.Info("Found GreenLuma", "path", r.legacy.GreenLumaDir)
	}

	markers := append([]string{i.cfg.Koalageddon.ConfigFile}, koalageddonMarkers...)
	r.legacy.KoalageddonDir = findInstall(koalageddonCandidates(i.cfg.Koalageddon.LegacyDir), markers)
	if r.legacy.KoalageddonDir == "" {
		r.report.Warn("no Koalageddon install found, nothing to migrate")
	} else {
		r.log.Info("Found Koalageddon", "path", r.legacy.KoalageddonDir)
	}
	return nil
}

func greenLumaCandidates(configured, steam string) []string {
	if configured != "" {
		return []string{configured}
	}
	var dirs []string
	if steam != "" {
		dirs = append(dirs, steam, filepath.Join(steam, "GreenLuma"))
	}
	return dirs
}

func koalageddonCandidates(configured string) []string {
	if configured != "" {
		return []string{configured}
	}
	var dirs []string
	if pf := os.Getenv("ProgramFiles"); pf != "" {
		dirs = append(dirs, filepath.Join(pf, "Koalageddon"))
	}
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		dirs = append(dirs, filepath.Join(local, "Programs", "Koalageddon"))
	}
	return dirs
}

// findInstall returns the first candidate directory holding any marker file.
func findInstall(candidates, markers []string) string {
	for _, dir := range candidates {
		for _, m := range markers {
			if m == "" {
				continue
			}
			if fi, err := os.Stat(filepath.Join(dir, m)); err == nil && !fi.IsDir() {
				return dir
			}
		}
	}
	return ""
}
