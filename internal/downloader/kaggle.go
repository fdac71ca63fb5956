// Package downloader fetches the survey archive from its Kaggle page with a
// headless browser and extracts it into the data directory. The credential
// and pipeline cores only depend on the extracted file appearing at the
// configured path.
package downloader

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"github.com/sirupsen/logrus"
)

// Kaggle drives a Chrome instance through the dataset page's download menu.
// Kaggle serves datasets behind a JS-rendered page, so a plain HTTP client
// does not work here.
type Kaggle struct {
	PageURL  string
	Dir      string
	Headless bool
	Timeout  time.Duration
	Logger   *logrus.Logger
}

const (
	downloadButtonXPath = `//span[text()='Download']/ancestor::button`
	downloadZipXPath    = `//p[text()='Download dataset as zip']`
)

// Fetch downloads the dataset archive into Dir and returns the zip path.
func (k *Kaggle) Fetch(ctx context.Context) (string, error) {
	if err := os.MkdirAll(k.Dir, 0o755); err != nil {
		return "", err
	}
	absDir, err := filepath.Abs(k.Dir)
	if err != nil {
		return "", err
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", k.Headless),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	timeout := k.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	runCtx, cancelRun := context.WithTimeout(browserCtx, timeout)
	defer cancelRun()

	if k.Logger != nil {
		k.Logger.WithField("url", k.PageURL).Info("fetching dataset archive")
	}

	err = chromedp.Run(runCtx,
		browser.SetDownloadBehavior(browser.SetDownloadBehaviorBehaviorAllow).
			WithDownloadPath(absDir),
		chromedp.Navigate(k.PageURL),
		chromedp.WaitVisible(downloadButtonXPath, chromedp.BySearch),
		chromedp.Click(downloadButtonXPath, chromedp.BySearch),
		chromedp.WaitVisible(downloadZipXPath, chromedp.BySearch),
		chromedp.Click(downloadZipXPath, chromedp.BySearch),
	)
	if err != nil {
		return "", fmt.Errorf("drive dataset page: %w", err)
	}

	zipPath, err := waitForZip(runCtx, absDir)
	if err != nil {
		return "", err
	}
	if k.Logger != nil {
		k.Logger.WithField("zip", zipPath).Info("dataset archive downloaded")
	}
	return zipPath, nil
}

// waitForZip polls the download directory until a finished .zip shows up.
// Chrome writes in-progress downloads with a .crdownload suffix.
func waitForZip(ctx context.Context, dir string) (string, error) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("wait for dataset download: %w", ctx.Err())
		case <-ticker.C:
			matches, err := filepath.Glob(filepath.Join(dir, "*.zip"))
			if err != nil {
				return "", err
			}
			for _, m := range matches {
				if _, statErr := os.Stat(m + ".crdownload"); statErr == nil {
					continue
				}
				return m, nil
			}
		}
	}
}

// Unzip extracts the archive into destDir and removes the zip on success.
// Entries escaping destDir are rejected.
func Unzip(zipPath, destDir string) error {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return fmt.Errorf("open archive %s: %w", zipPath, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		_ = r.Close()
		return err
	}
	for _, f := range r.File {
		if err := extractEntry(f, destDir); err != nil {
			_ = r.Close()
			return err
		}
	}
	if err := r.Close(); err != nil {
		return err
	}
	return os.Remove(zipPath)
}

func extractEntry(f *zip.File, destDir string) error {
	cleaned := filepath.Clean(f.Name)
	if strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return fmt.Errorf("archive entry escapes destination: %s", f.Name)
	}
	target := filepath.Join(destDir, cleaned)

	if f.FileInfo().IsDir() {
		return os.MkdirAll(target, 0o755)
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return err
	}
	src, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		return err
	}
	return dst.Close()
}
