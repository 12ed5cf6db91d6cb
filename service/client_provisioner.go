package service

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/resty.v1"

	"github.com/ludo-technologies/tcagate/domain"
	"github.com/ludo-technologies/tcagate/internal/constants"
	"github.com/ludo-technologies/tcagate/internal/version"
)

const downloadTimeout = 20 * time.Minute

// ClientProvisionerImpl installs the external client, reusing an existing
// installation when one is present
type ClientProvisionerImpl struct {
	installDir  string
	downloadURL string
	client      *resty.Client
	progress    domain.ProgressManager
}

// NewClientProvisioner creates a provisioner. An empty installDir selects
// /tca_action/lib when /tca_action exists and <parent of cwd>/lib otherwise.
func NewClientProvisioner(installDir, downloadURL string, pm domain.ProgressManager) (*ClientProvisionerImpl, error) {
	if installDir == "" {
		dir, err := DefaultInstallDir()
		if err != nil {
			return nil, err
		}
		installDir = dir
	}
	if downloadURL == "" {
		downloadURL = constants.DefaultDownloadURL
	}
	if pm == nil {
		pm = &NoOpProgressManager{}
	}

	cl := &http.Client{Timeout: downloadTimeout}
	client := resty.NewWithClient(cl)
	client.SetHeader("User-Agent", version.UserAgent())

	return &ClientProvisionerImpl{
		installDir:  installDir,
		downloadURL: downloadURL,
		client:      client,
		progress:    pm,
	}, nil
}

// DefaultInstallDir returns the client install directory used when none is configured
func DefaultInstallDir() (string, error) {
	if info, err := os.Stat(constants.ActionInstallRoot); err == nil && info.IsDir() {
		return filepath.Join(constants.ActionInstallRoot, "lib"), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", domain.NewConfigError("cannot determine working directory", err)
	}
	return filepath.Join(filepath.Dir(cwd), "lib"), nil
}

// Provision returns a ready client. A bundled tca-client directory wins, then
// a previous extraction of the configured archive; otherwise the archive is
// downloaded and extracted.
func (p *ClientProvisionerImpl) Provision(ctx context.Context) (*domain.ClientInstallation, error) {
	if err := os.MkdirAll(p.installDir, 0o755); err != nil {
		return nil, domain.NewConfigError(fmt.Sprintf("cannot create install dir %s", p.installDir), err)
	}
	log.Infof("client install dir: %s", p.installDir)

	bundled := filepath.Join(p.installDir, constants.ClientDirName)
	if dirExists(bundled) {
		log.Infof("%s exists, reuse it", bundled)
		return newInstallation(bundled), nil
	}

	zipName, err := archiveName(p.downloadURL)
	if err != nil {
		return nil, err
	}
	workDir := filepath.Join(p.installDir, strings.TrimSuffix(zipName, filepath.Ext(zipName)))
	if dirExists(workDir) {
		log.Infof("%s exists, reuse it", workDir)
		return newInstallation(workDir), nil
	}

	zipPath := filepath.Join(p.installDir, zipName)
	if err := p.download(ctx, zipPath); err != nil {
		return nil, err
	}
	defer func() {
		log.Infof("remove archive after extraction: %s", zipPath)
		_ = os.Remove(zipPath)
	}()

	if err := extractZip(zipPath, p.installDir); err != nil {
		return nil, domain.NewDownloadError(fmt.Sprintf("failed to extract %s", zipName), err)
	}
	if !dirExists(workDir) {
		return nil, domain.NewDownloadError(
			fmt.Sprintf("archive %s does not contain %s", zipName, filepath.Base(workDir)), nil)
	}
	chmodExecutables(workDir)
	return newInstallation(workDir), nil
}

func (p *ClientProvisionerImpl) download(ctx context.Context, dest string) error {
	log.Infof("downloading client from %s", p.downloadURL)
	resp, err := p.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(p.downloadURL)
	if err != nil {
		return domain.NewDownloadError(fmt.Sprintf("failed to download %s", p.downloadURL), err)
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.StatusCode() != http.StatusOK {
		return domain.NewDownloadError(
			fmt.Sprintf("failed to download %s: status code %d", p.downloadURL, resp.StatusCode()), nil)
	}

	file, err := os.Create(dest)
	if err != nil {
		return domain.NewDownloadError(fmt.Sprintf("cannot create %s", dest), err)
	}
	defer file.Close()

	size := int64(-1)
	if resp.RawResponse != nil {
		size = resp.RawResponse.ContentLength
	}
	task := p.progress.StartTransfer("Downloading client", size)
	defer task.Complete()

	n, err := io.Copy(io.MultiWriter(file, progressWriter{task: task}), body)
	if err != nil {
		return domain.NewDownloadError(fmt.Sprintf("failed to download %s", p.downloadURL), err)
	}
	if err := file.Close(); err != nil {
		return domain.NewDownloadError(fmt.Sprintf("cannot write %s", dest), err)
	}
	log.Infof("downloaded %d bytes to %s", n, dest)
	return nil
}

// archiveName is the last path segment of the download URL
func archiveName(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", domain.NewConfigError(fmt.Sprintf("invalid client download url %q", rawURL), err)
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "", domain.NewConfigError(fmt.Sprintf("client download url %q has no file name", rawURL), nil)
	}
	return name, nil
}

// extractZip unpacks src into dest. Entries escaping dest are rejected.
func extractZip(src, dest string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	root := filepath.Clean(dest) + string(os.PathSeparator)
	for _, f := range r.File {
		target := filepath.Join(dest, f.Name)
		if !strings.HasPrefix(target, root) {
			return fmt.Errorf("illegal path in archive: %s", f.Name)
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
			continue
		}
		if err := extractZipFile(f, target); err != nil {
			return err
		}
	}
	return nil
}

func extractZipFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	mode := f.Mode().Perm()
	if mode == 0 {
		mode = 0o644
	}
	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, rc); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// chmodExecutables makes the client executables runnable by the owner only
func chmodExecutables(dir string) {
	for _, name := range []string{constants.ClientExecutable, constants.ScanTaskExecutable} {
		exe := filepath.Join(dir, name)
		if _, err := os.Stat(exe); err != nil {
			continue
		}
		if err := os.Chmod(exe, 0o700); err != nil {
			log.Warnf("cannot make %s executable: %v", exe, err)
		}
	}
}

func newInstallation(workDir string) *domain.ClientInstallation {
	return &domain.ClientInstallation{
		WorkDir:    workDir,
		Executable: filepath.Join(workDir, constants.ClientExecutable),
	}
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

var _ domain.ClientProvisioner = (*ClientProvisionerImpl)(nil)
