// Package backup snapshots and restores the controller's data file, the
// single file holding every process the console knows about.
package backup

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	billy "github.com/go-git/go-billy/v5"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/agentic-research/procmirror/internal/errs"
	"github.com/agentic-research/procmirror/internal/localtree"
)

// ErrNoBackup is returned by Restore when the named backup does not exist.
var ErrNoBackup = errors.New("backup does not exist")

// stampLayout prefixes every backup name.
const stampLayout = "2006-01-02 150405"

// Backup is one file in the backup directory.
type Backup struct {
	Name  string
	Path  string
	Taken time.Time
	Size  int64
}

// Manager moves the data file in and out of the backup directory.
type Manager struct {
	fs        billy.Filesystem
	dataFile  string
	backupDir string
	log       logrus.FieldLogger

	// in maps a caller's path into fs.
	in    func(string) (string, error)
	now   func() time.Time
	newID func() string
}

// New returns a Manager over fs. A nil log uses the standard logger.
func New(fs billy.Filesystem, dataFile, backupDir string, log logrus.FieldLogger) *Manager {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		fs:        fs,
		dataFile:  dataFile,
		backupDir: backupDir,
		log:       log,
		in:        func(p string) (string, error) { return p, nil },
		now:       time.Now,
		newID:     func() string { return uuid.NewString()[:8] },
	}
}

// NewOS returns a Manager over the OS filesystem. Relative paths, here and
// in later calls, resolve against the working directory.
func NewOS(dataFile, backupDir string, log logrus.FieldLogger) (*Manager, error) {
	fs, err := localtree.OSFilesystem()
	if err != nil {
		return nil, err
	}
	in := func(p string) (string, error) { return localtree.OSRel(fs, p) }
	if dataFile, err = in(dataFile); err != nil {
		return nil, err
	}
	if backupDir, err = in(backupDir); err != nil {
		return nil, err
	}
	m := New(fs, dataFile, backupDir, log)
	m.in = in
	return m, nil
}

// DataFile returns the managed data file path.
func (m *Manager) DataFile() string {
	return m.out(m.dataFile)
}

// out maps a path inside fs to the path the operating system sees.
func (m *Manager) out(p string) string {
	return filepath.Join(m.fs.Root(), p)
}

// Snapshot moves the data file into the backup directory and returns the
// backup's path. The data file is gone afterwards.
func (m *Manager) Snapshot() (string, error) {
	if _, err := m.fs.Stat(m.dataFile); err != nil {
		return "", errs.E(errs.KindIO, "snapshot", m.dataFile, err)
	}
	if err := m.fs.MkdirAll(m.backupDir, 0o755); err != nil {
		return "", errs.E(errs.KindIO, "snapshot", m.backupDir, err)
	}

	name := fmt.Sprintf("%s %s %s", m.now().Format(stampLayout), m.newID(), filepath.Base(m.dataFile))
	dst := m.fs.Join(m.backupDir, name)
	if err := m.move(m.dataFile, dst); err != nil {
		return "", errs.E(errs.KindIO, "snapshot", dst, err)
	}

	m.log.WithFields(logrus.Fields{"data_file": m.out(m.dataFile), "backup": m.out(dst)}).Info("data file backed up")
	return m.out(dst), nil
}

// ResetFrom replaces the data file with a copy of baseline, leaving the
// console with no processes.
func (m *Manager) ResetFrom(baseline string) error {
	src, err := m.in(baseline)
	if err != nil {
		return errs.E(errs.KindIO, "reset", baseline, err)
	}
	if err := m.copyFile(src, m.dataFile); err != nil {
		return errs.E(errs.KindIO, "reset", m.dataFile, err)
	}
	m.log.WithField("baseline", baseline).Info("data file reset")
	return nil
}

// Restore replaces the data file with a copy of backup. A bare name is
// looked up in the backup directory.
func (m *Manager) Restore(backup string) error {
	src, err := m.resolve(backup)
	if err != nil {
		return err
	}
	if err := m.fs.Remove(m.dataFile); err != nil && !os.IsNotExist(err) {
		return errs.E(errs.KindIO, "restore", m.dataFile, err)
	}
	if err := m.copyFile(src, m.dataFile); err != nil {
		return errs.E(errs.KindIO, "restore", m.dataFile, err)
	}
	m.log.WithField("backup", m.out(src)).Info("data file restored")
	return nil
}

func (m *Manager) resolve(backup string) (string, error) {
	var candidates []string
	if p, err := m.in(backup); err == nil {
		candidates = append(candidates, p)
	}
	if !filepath.IsAbs(backup) && !strings.ContainsRune(backup, filepath.Separator) {
		candidates = append(candidates, m.fs.Join(m.backupDir, backup))
	}
	for _, c := range candidates {
		if info, err := m.fs.Stat(c); err == nil && !info.IsDir() {
			return c, nil
		}
	}
	return "", fmt.Errorf("%s: %w", backup, ErrNoBackup)
}

// List returns the backups, newest first. Names without a timestamp prefix
// are dated by modification time.
func (m *Manager) List() ([]Backup, error) {
	infos, err := m.fs.ReadDir(m.backupDir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.E(errs.KindIO, "list backups", m.backupDir, err)
	}

	var out []Backup
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		b := Backup{
			Name:  info.Name(),
			Path:  m.out(m.fs.Join(m.backupDir, info.Name())),
			Taken: info.ModTime(),
			Size:  info.Size(),
		}
		if len(b.Name) >= len(stampLayout) {
			if t, err := time.ParseInLocation(stampLayout, b.Name[:len(stampLayout)], time.Local); err == nil {
				b.Taken = t
			}
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Taken.Equal(out[j].Taken) {
			return out[i].Name > out[j].Name
		}
		return out[i].Taken.After(out[j].Taken)
	})
	return out, nil
}

// move renames src to dst, copying when a rename is not possible (for
// example across volumes).
func (m *Manager) move(src, dst string) error {
	if err := m.fs.Rename(src, dst); err == nil {
		return nil
	}
	if err := m.copyFile(src, dst); err != nil {
		return err
	}
	return m.fs.Remove(src)
}

func (m *Manager) copyFile(src, dst string) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if dir := filepath.Dir(dst); dir != "." {
		if err := m.fs.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	out, err := m.fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
