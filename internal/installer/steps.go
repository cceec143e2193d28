package installer

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"slices"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/luna/internal/core/config"
	"github.com/vietddude/luna/internal/core/domain"
	"github.com/vietddude/luna/internal/core/retry"
	"github.com/vietddude/luna/internal/infra/download"
	"github.com/vietddude/luna/internal/infra/shortcut"
	"github.com/vietddude/luna/internal/metrics"
)

// Layout subdirectories of the install dir.
const (
	DirGreenLuma   = "greenluma"
	DirKoalageddon = "koalageddon"
	DirAppList     = "AppList"
	DirBackup      = "backup"
)

func (i *Installer) path(parts ...string) string {
	return filepath.Join(append([]string{i.cfg.Paths.InstallDir}, parts...)...)
}

// resolve makes p absolute relative to the install dir.
func (i *Installer) resolve(p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return i.path(p)
}

func (i *Installer) checkPrivileges(_ context.Context, r *run) error {
	elevated, err := i.deps.Elevated()
	if err != nil {
		if domain.KindOf(err) == domain.KindPlatform {
			r.report.Warn(fmt.Sprintf("privilege check skipped: %v", err))
			return nil
		}
		r.log.Warn("Privilege check failed", "error", err)
		elevated = false
	}
	if elevated {
		return nil
	}
	if i.cfg.Paths.RequireAdmin {
		return domain.NewError(domain.KindPrivilege, "privilege check", "", domain.ErrNotElevated)
	}
	r.skipExclusions = true
	r.report.Warn("not running as administrator, Defender exclusions will be skipped")
	return nil
}

func (i *Installer) createDirectories(_ context.Context, r *run) error {
	dirs := []string{
		i.path(),
		i.path(DirGreenLuma),
		i.path(DirKoalageddon),
		i.path(DirAppList),
		i.path(DirBackup),
	}
	for _, dir := range dirs {
		if err := ensureDir(r, dir, true); err != nil {
			r.report.Error(err.Error())
		}
	}
	return nil
}

// ensureDir creates dir and any missing parents, top down, recording each
// directory it creates so cleanup can remove them in reverse.
func ensureDir(r *run, dir string, recordExisting bool) error {
	dir = filepath.Clean(dir)
	if fi, err := os.Stat(dir); err == nil {
		if !fi.IsDir() {
			err := domain.NewError(domain.KindFile, "create directory", dir, errors.New("exists and is not a directory"))
			r.report.RecordOutcome(domain.CategoryDirectories, dir, false, err.Error())
			return err
		}
		if recordExisting {
			r.report.RecordOutcome(domain.CategoryDirectories, dir, true, domain.MsgAlreadyExists)
		}
		return nil
	}

	var missing []string
	for p := dir; ; {
		if _, err := os.Stat(p); err == nil {
			break
		}
		missing = append(missing, p)
		parent := filepath.Dir(p)
		if parent == p {
			break
		}
		p = parent
	}
	slices.Reverse(missing)

	for _, p := range missing {
		err := os.Mkdir(p, 0o755)
		switch {
		case err == nil:
			r.report.RecordOutcome(domain.CategoryDirectories, p, true, "created")
		case errors.Is(err, fs.ErrExist):
			r.report.RecordOutcome(domain.CategoryDirectories, p, true, domain.MsgAlreadyExists)
		default:
			r.report.RecordOutcome(domain.CategoryDirectories, p, false, err.Error())
			return domain.NewError(domain.KindFile, "create directory", p, err)
		}
	}
	return nil
}

func (i *Installer) downloadSources(ctx context.Context, r *run) error {
	if len(i.cfg.Sources) == 0 {
		return nil
	}

	tmp := filepath.Join(i.cfg.Paths.TempDir, "luna-"+r.id)
	r.temps.Add(tmp)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.cfg.Download.Concurrency)
	for _, src := range i.cfg.Sources {
		g.Go(func() error {
			dest := filepath.Join(tmp, src.Name+archiveExt(src.URL))
			r.temps.Add(dest)

			n, err := i.fetch(gctx, r, src, dest)
			if err != nil {
				r.report.RecordOutcome(domain.CategoryDownloads, src.URL, false, err.Error())
				r.report.Error(fmt.Sprintf("download %s: %v", src.Name, err))
				if fatal(err) {
					return err
				}
				return nil
			}
			r.report.RecordOutcome(domain.CategoryDownloads, src.URL, true, fmt.Sprintf("%d bytes", n))
			r.setDownloaded(src.Name, dest)
			return nil
		})
	}
	return g.Wait()
}

func (i *Installer) fetch(ctx context.Context, r *run, src config.SourceConfig, dest string) (int64, error) {
	attempt := 0
	return retry.Do(ctx, i.policy, func(ctx context.Context) retry.Result[int64] {
		attempt++
		if attempt > 1 {
			metrics.ObserveRetry("download")
		}
		r.log.Info("Downloading", "source", src.Name, "url", src.URL, "attempt", attempt)
		n, err := i.deps.Downloader.Fetch(ctx, src.URL, dest, progressLogger(r.log, src.Name))
		return retry.FromError(n, err)
	})
}

// progressLogger logs every 25% of a transfer with a known size.
func progressLogger(log *slog.Logger, name string) download.ProgressFunc {
	last := 0
	return func(done, total int64) {
		if total <= 0 {
			return
		}
		pct := int(done * 100 / total)
		if pct/25 > last/25 {
			last = pct
			log.Debug("Download progress", "source", name, "percent", pct)
		}
	}
}

// archiveExt returns the extension of the URL path, ".zip" when it has none.
func archiveExt(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ".zip"
	}
	if ext := path.Ext(u.Path); ext != "" {
		return ext
	}
	return ".zip"
}

func (r *run) setDownloaded(name, path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.downloaded[name] = path
}

func (r *run) archive(name string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.downloaded[name]
	return p, ok
}

func (i *Installer) extractSources(_ context.Context, r *run) error {
	for _, src := range i.cfg.Sources {
		archivePath, ok := r.archive(src.Name)
		if !ok {
			continue
		}
		dest := i.resolve(src.Dest)
		if err := ensureDir(r, dest, false); err != nil {
			r.report.RecordOutcome(domain.CategoryExtraction, dest, false, err.Error())
			r.report.Error(fmt.Sprintf("extract %s: %v", src.Name, err))
			continue
		}
		files, err := i.deps.Extract(archivePath, dest, src.Flatten)
		if err != nil {
			r.report.RecordOutcome(domain.CategoryExtraction, dest, false, err.Error())
			r.report.Error(fmt.Sprintf("extract %s: %v", src.Name, err))
			continue
		}
		r.report.RecordOutcome(domain.CategoryExtraction, dest, true, fmt.Sprintf("%d files", len(files)))
	}
	return nil
}

func (i *Installer) migrateLegacy(_ context.Context, r *run) error {
	if gl := r.legacy.GreenLumaDir; gl != "" {
		lists, err := filepath.Glob(filepath.Join(gl, DirAppList, "*.txt"))
		if err != nil {
			r.report.Warn(fmt.Sprintf("cannot list GreenLuma AppList: %v", err))
		}
		slices.Sort(lists)
		for _, src := range lists {
			dst := i.path(DirAppList, filepath.Base(src))
			if err := copyFile(src, dst); err != nil {
				r.report.RecordOutcome(domain.CategoryConfigs, dst, false, err.Error())
				r.report.Error(err.Error())
				continue
			}
			r.report.RecordOutcome(domain.CategoryConfigs, dst, true, "migrated")
		}
		i.backup(r, DirGreenLuma, filepath.Join(gl, "DLLInjector.ini"))
	}
	if kg := r.legacy.KoalageddonDir; kg != "" {
		i.backup(r, DirKoalageddon, filepath.Join(kg, i.cfg.Koalageddon.ConfigFile))
	}
	return nil
}

// backup copies a legacy config into backup/ as <product>-<name>.
func (i *Installer) backup(r *run, product, src string) {
	if _, err := os.Stat(src); err != nil {
		return
	}
	dst := i.path(DirBackup, product+"-"+filepath.Base(src))
	if err := copyFile(src, dst); err != nil {
		r.report.RecordOutcome(domain.CategoryConfigs, dst, false, err.Error())
		r.report.Error(err.Error())
		return
	}
	r.report.RecordOutcome(domain.CategoryConfigs, dst, true, "backed up")
}

func (i *Installer) patchConfigs(_ context.Context, r *run) error {
	if settings := i.cfg.GreenLuma.Settings; len(settings) > 0 {
		target := i.path(DirGreenLuma, "DLLInjector.ini")
		seed := ""
		if r.legacy.GreenLumaDir != "" {
			seed = filepath.Join(r.legacy.GreenLumaDir, "DLLInjector.ini")
		}
		err := patchFile(target, seed, func(b []byte) ([]byte, error) {
			return PatchINI(b, settings), nil
		})
		i.recordPatch(r, target, err)
	}

	if settings := i.cfg.Koalageddon.Settings; len(settings) > 0 {
		target := i.path(DirKoalageddon, i.cfg.Koalageddon.ConfigFile)
		seed := ""
		if r.legacy.KoalageddonDir != "" {
			seed = filepath.Join(r.legacy.KoalageddonDir, i.cfg.Koalageddon.ConfigFile)
		}
		err := patchFile(target, seed, func(b []byte) ([]byte, error) {
			return PatchJSONC(b, settings)
		})
		i.recordPatch(r, target, err)
	}
	return nil
}

func (i *Installer) recordPatch(r *run, target string, err error) {
	if err != nil {
		r.report.RecordOutcome(domain.CategoryConfigs, target, false, err.Error())
		r.report.Error(err.Error())
		return
	}
	r.report.RecordOutcome(domain.CategoryConfigs, target, true, "patched")
}

func (i *Installer) addExclusions(ctx context.Context, r *run) error {
	if !i.cfg.Exclusions.Enabled {
		return nil
	}
	if r.skipExclusions {
		r.report.Warn("Defender exclusions skipped")
		return nil
	}

	paths := append([]string{i.path()}, i.cfg.Exclusions.Paths...)
	for _, p := range paths {
		err := i.deps.Exclusions.AddExclusion(ctx, p)
		switch {
		case err == nil:
			r.report.RecordOutcome(domain.CategoryExclusions, p, true, "")
		case domain.KindOf(err) == domain.KindPlatform:
			r.report.Warn(fmt.Sprintf("Defender exclusions skipped: %v", err))
			return nil
		default:
			r.report.RecordOutcome(domain.CategoryExclusions, p, false, err.Error())
			r.report.Error(err.Error())
			if fatal(err) {
				return err
			}
		}
	}
	return nil
}

func (i *Installer) createShortcuts(_ context.Context, r *run) error {
	for _, sc := range i.cfg.Shortcuts {
		target := i.resolve(sc.Target)
		if _, err := os.Stat(target); err != nil {
			r.report.Warn(fmt.Sprintf("shortcut %s points at missing %s", sc.Name, target))
		}
		wd := filepath.Dir(target)
		if sc.WorkingDir != "" {
			wd = i.resolve(sc.WorkingDir)
		}

		p, err := i.deps.Shortcuts.Create(shortcut.Descriptor{
			Name:        sc.Name,
			Target:      target,
			Args:        sc.Args,
			WorkingDir:  wd,
			Icon:        sc.Icon,
			Description: sc.Description,
		})
		if err != nil {
			r.report.RecordOutcome(domain.CategoryShortcuts, sc.Name, false, err.Error())
			r.report.Error(fmt.Sprintf("shortcut %s: %v", sc.Name, err))
			continue
		}
		r.report.RecordOutcome(domain.CategoryShortcuts, p, true, "")
	}
	return nil
}
