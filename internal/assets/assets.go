// Package assets resolves the files a benchmark run needs on disk: the
// transcoder build and the source media. Files already present and matching
// their published hashes are reused; everything else is downloaded, verified,
// and, for tool archives, unpacked.
package assets

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/sethvargo/go-retry"
	"golang.org/x/sync/errgroup"

	"github.com/BotBlake/jellybench/internal/benchmark"
	"github.com/BotBlake/jellybench/pkg/models"
)

const (
	// DefaultConcurrency bounds parallel media downloads
	DefaultConcurrency = 3

	// retryAttempts is how often a failed download is retried
	retryAttempts = 3

	// retryBase is the initial backoff between download attempts
	retryBase = 2 * time.Second
)

// Manager downloads and verifies benchmark assets.
type Manager struct {
	client      *http.Client
	logger      *slog.Logger
	concurrency int
	progress    bool
	sftp        *sftpFetcher
	retryBase   time.Duration
}

// Option configures the asset manager.
type Option func(*Manager)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(m *Manager) {
		m.client = client
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithConcurrency bounds how many media files download in parallel.
func WithConcurrency(n int) Option {
	return func(m *Manager) {
		if n >= 1 {
			m.concurrency = n
		}
	}
}

// WithProgress renders a console byte-progress bar per download.
func WithProgress(enabled bool) Option {
	return func(m *Manager) {
		m.progress = enabled
	}
}

// WithSFTP enables sftp:// sources using the given credentials.
func WithSFTP(creds SFTPCredentials) Option {
	return func(m *Manager) {
		m.sftp = newSFTPFetcher(creds)
	}
}

// New creates an asset manager.
func New(opts ...Option) *Manager {
	m := &Manager{
		// Media files are large; the timeout covers a whole download.
		client:      &http.Client{Timeout: 10 * time.Minute},
		logger:      slog.Default(),
		concurrency: DefaultConcurrency,
		retryBase:   retryBase,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// FetchVideos ensures every media asset exists in dir and matches its
// published hashes. Downloads run concurrently, bounded by the configured
// limit. Returns asset name to local path.
func (m *Manager) FetchVideos(ctx context.Context, dir string, assets []models.MediaAsset) (map[string]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create video dir: %w", err)
	}

	paths := make(map[string]string, len(assets))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for _, asset := range assets {
		asset := asset
		g.Go(func() error {
			local, err := m.obtain(ctx, dir, remoteFilename(asset.SourceURL), asset.SourceURL, asset.Hashes)
			if err != nil {
				return fmt.Errorf("asset %s: %w", asset.Name, err)
			}
			mu.Lock()
			paths[asset.Name] = local
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return paths, nil
}

// FetchTool ensures the transcoder build is on disk and returns the absolute
// path of its executable. Archive sources are unpacked once into a sibling
// directory.
func (m *Manager) FetchTool(ctx context.Context, dir string, tool models.ToolSource) (string, error) {
	if tool.SourceURL == "" {
		return "", fmt.Errorf("test data names no transcoder source: %w", benchmark.ErrConfiguration)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create tool dir: %w", err)
	}

	local, err := m.obtain(ctx, dir, remoteFilename(tool.SourceURL), tool.SourceURL, tool.Hashes)
	if err != nil {
		return "", err
	}

	binary := local
	if isArchive(local) {
		unpackDir := filepath.Join(dir, "ffmpeg_files")
		binary = filepath.Join(unpackDir, exeName("ffmpeg"))

		if _, err := os.Stat(binary); err != nil {
			m.logger.Info("unpacking transcoder archive",
				slog.String("archive", filepath.Base(local)))
			if err := unpack(local, unpackDir); err != nil {
				return "", fmt.Errorf("unpack %s: %w", filepath.Base(local), err)
			}
			if _, err := os.Stat(binary); err != nil {
				// Some builds nest the binary below a versioned top dir
				found, ok := findBinary(unpackDir, exeName("ffmpeg"))
				if !ok {
					return "", fmt.Errorf("no %s in unpacked archive: %w", exeName("ffmpeg"), benchmark.ErrEnvironment)
				}
				binary = found
			}
		}
	}

	abs, err := filepath.Abs(binary)
	if err != nil {
		return "", fmt.Errorf("resolve transcoder path: %w", err)
	}
	if _, err := os.Stat(abs); err != nil {
		return "", fmt.Errorf("transcoder executable missing: %v: %w", err, benchmark.ErrEnvironment)
	}
	if runtime.GOOS != "windows" {
		if err := os.Chmod(abs, 0755); err != nil {
			return "", fmt.Errorf("mark transcoder executable: %w", err)
		}
	}

	return abs, nil
}

// obtain returns a verified local copy of srcURL, downloading only when the
// file is absent or fails verification.
func (m *Manager) obtain(ctx context.Context, dir, name, srcURL string, hashes []models.FileHash) (string, error) {
	local := filepath.Join(dir, name)

	ok, err := verify(local, hashes)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", name, err)
	}
	if ok {
		m.logger.Debug("asset already present", slog.String("file", name))
		return local, nil
	}

	m.logger.Info("downloading asset",
		slog.String("file", name),
		slog.String("url", srcURL))

	backoff, err := retry.NewExponential(m.retryBase)
	if err != nil {
		return "", fmt.Errorf("create backoff: %w", err)
	}
	backoff = retry.WithMaxRetries(retryAttempts, backoff)

	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := m.download(ctx, srcURL, local); err != nil {
			m.logger.Warn("download attempt failed",
				slog.String("file", name),
				slog.String("error", err.Error()))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("download %s: %v: %w", srcURL, err, benchmark.ErrConfiguration)
	}

	ok, err = verify(local, hashes)
	if err != nil {
		return "", fmt.Errorf("verify %s: %w", name, err)
	}
	if !ok {
		return "", fmt.Errorf("%s does not match its published hash: %w", name, benchmark.ErrConfiguration)
	}

	return local, nil
}

// download dispatches on the source URL scheme.
func (m *Manager) download(ctx context.Context, srcURL, local string) error {
	u, err := url.Parse(srcURL)
	if err != nil {
		return fmt.Errorf("parse source url: %w", err)
	}

	switch u.Scheme {
	case "http", "https":
		return m.downloadHTTP(ctx, srcURL, local)
	case "sftp":
		if m.sftp == nil {
			return fmt.Errorf("sftp source %s requires sftp credentials", srcURL)
		}
		return m.sftp.Fetch(ctx, u, local)
	default:
		return fmt.Errorf("unsupported source scheme %q", u.Scheme)
	}
}

func (m *Manager) downloadHTTP(ctx context.Context, srcURL, local string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srcURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body io.Reader = resp.Body
	if m.progress {
		bar := progressbar.DefaultBytes(resp.ContentLength, filepath.Base(local))
		defer bar.Close()
		body = io.TeeReader(resp.Body, bar)
	}

	return writeAtomic(local, body)
}

// writeAtomic streams r into a temp file and renames it into place, so a
// partial download never masquerades as a finished one.
func writeAtomic(local string, r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(local), filepath.Base(local)+".partial-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	return os.Rename(tmp.Name(), local)
}

// verify checks local against the sha256 entry in hashes. A missing file is
// simply unverified; unknown hash types are ignored; a file without any
// sha256 hash passes on existence.
func verify(local string, hashes []models.FileHash) (bool, error) {
	f, err := os.Open(local)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	defer f.Close()

	var want string
	for _, h := range hashes {
		if strings.EqualFold(h.Type, "sha256") {
			want = strings.ToLower(h.Hash)
			break
		}
	}
	if want == "" {
		return true, nil
	}

	sum := sha256.New()
	if _, err := io.Copy(sum, f); err != nil {
		return false, err
	}
	return hex.EncodeToString(sum.Sum(nil)) == want, nil
}

// remoteFilename is the basename of the URL's path.
func remoteFilename(srcURL string) string {
	if u, err := url.Parse(srcURL); err == nil && u.Path != "" {
		return path.Base(u.Path)
	}
	return path.Base(srcURL)
}

func isArchive(name string) bool {
	return strings.HasSuffix(name, ".zip") ||
		strings.HasSuffix(name, ".tar.gz") ||
		strings.HasSuffix(name, ".tgz")
}

func exeName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// findBinary walks dir for a regular file with the given name.
func findBinary(dir, name string) (string, bool) {
	var found string
	_ = filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() && d.Name() == name {
			found = p
			return filepath.SkipAll
		}
		return nil
	})
	return found, found != ""
}
