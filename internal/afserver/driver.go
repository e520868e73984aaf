package afserver

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"foldbatch/internal/driver"
)

// Driver implements driver.Driver on top of a live Session.
type Driver struct {
	session *Session
	logger  *zap.Logger
}

var _ driver.Driver = (*Driver)(nil)

// NewDriver wraps an open session.
func NewDriver(session *Session, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{session: session, logger: logger}
}

// Submit fills the entity form, submits it and resolves the new job's
// identifier from the job table. The returned id is the server's own
// identifier, used for every later poll and download.
func (d *Driver) Submit(ctx context.Context, spec driver.JobSpec) (string, error) {
	page := d.session.page.Context(ctx)
	timeout := d.session.cfg.elementTimeout()

	sequence := spec.ProteinSequence
	if sequence == "" {
		sequence = spec.DNASequence
	}
	if strings.TrimSpace(sequence) == "" {
		return "", fmt.Errorf("job %q has no sequence", spec.JobName)
	}

	name, err := page.Timeout(timeout).Element(selJobNameInput)
	if err != nil {
		return "", fmt.Errorf("job name field: %w", err)
	}
	if err := name.SelectAllText(); err == nil {
		_ = name.Input("")
	}
	if err := name.Input(spec.JobName); err != nil {
		return "", fmt.Errorf("fill job name: %w", err)
	}

	seq, err := page.Timeout(timeout).Element(selSequenceInput)
	if err != nil {
		return "", fmt.Errorf("sequence field: %w", err)
	}
	if err := seq.SelectAllText(); err == nil {
		_ = seq.Input("")
	}
	if err := seq.Input(sequence); err != nil {
		return "", fmt.Errorf("fill sequence: %w", err)
	}

	submit, err := page.Timeout(timeout).Element(selSubmitButton)
	if err != nil {
		return "", fmt.Errorf("submit button: %w", err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return "", fmt.Errorf("click submit: %w", err)
	}

	id, err := d.resolveJobID(page, spec.JobName, timeout)
	if err != nil {
		return "", err
	}
	d.logger.Info("job submitted", zap.String("job", spec.JobName), zap.String("job_id", id))
	return id, nil
}

// resolveJobID waits for the submitted job to appear in the table and
// extracts its identifier from the row.
func (d *Driver) resolveJobID(page *rod.Page, jobName string, timeout time.Duration) (string, error) {
	deadline := time.Now().Add(timeout)
	for {
		row, err := d.findRow(page, jobName)
		if err == nil {
			if id := rowJobID(row); id != "" {
				return id, nil
			}
		}
		if time.Now().After(deadline) {
			return "", fmt.Errorf("job %q not visible in job table after submit", jobName)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

// PollStatus reads the job's row and maps its visible state onto the
// canonical status enum. A missing row is reported as Unknown, never as
// an error, so a slow table refresh does not fail the job.
func (d *Driver) PollStatus(ctx context.Context, jobID string) (driver.Status, error) {
	page := d.session.page.Context(ctx)
	if err := page.Reload(); err != nil {
		return driver.StatusUnknown, fmt.Errorf("reload job table: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return driver.StatusUnknown, fmt.Errorf("load job table: %w", err)
	}

	row, err := d.findRowByID(page, jobID)
	if err != nil {
		d.logger.Debug("job row not found", zap.String("job_id", jobID))
		return driver.StatusUnknown, nil
	}
	return classifyRow(row), nil
}

// Download triggers the row's download action and waits for the archive
// to land in destDir.
func (d *Driver) Download(ctx context.Context, jobID, destDir string) error {
	page := d.session.page.Context(ctx)
	timeout := d.session.cfg.elementTimeout()

	abs, err := filepath.Abs(destDir)
	if err != nil {
		return fmt.Errorf("resolve destination: %w", err)
	}
	err = proto.BrowserSetDownloadBehavior{
		Behavior:         proto.BrowserSetDownloadBehaviorBehaviorAllow,
		DownloadPath:     abs,
		BrowserContextID: d.session.browser.BrowserContextID,
	}.Call(d.session.browser)
	if err != nil {
		return fmt.Errorf("set download path: %w", err)
	}

	if err := page.Reload(); err != nil {
		return fmt.Errorf("reload job table: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("load job table: %w", err)
	}

	row, err := d.findRowByID(page, jobID)
	if err != nil {
		return fmt.Errorf("job %s not in table: %w", jobID, err)
	}
	button, err := row.Timeout(timeout).Element(selRowDownload)
	if err != nil {
		return fmt.Errorf("download control for %s: %w", jobID, err)
	}
	if err := button.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("click download: %w", err)
	}
	return waitForArchive(ctx, abs, 2*time.Minute)
}

func (d *Driver) findRow(page *rod.Page, jobName string) (*rod.Element, error) {
	rows, err := page.Elements(selJobRow)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		text, err := row.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, jobName) {
			return row, nil
		}
	}
	return nil, fmt.Errorf("no row matching %q", jobName)
}

func (d *Driver) findRowByID(page *rod.Page, jobID string) (*rod.Element, error) {
	rows, err := page.Elements(selJobRow)
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		if rowJobID(row) == jobID {
			return row, nil
		}
		text, err := row.Text()
		if err != nil {
			continue
		}
		if strings.Contains(text, jobID) {
			return row, nil
		}
	}
	return nil, fmt.Errorf("no row for job %s", jobID)
}

// rowJobID pulls the server identifier off a table row. The table keys
// rows by a data attribute; the first cell's text is the fallback.
func rowJobID(row *rod.Element) string {
	if attr, err := row.Attribute("data-job-id"); err == nil && attr != nil && *attr != "" {
		return *attr
	}
	cell, err := row.Element("td")
	if err != nil {
		return ""
	}
	text, err := cell.Text()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// classifyRow maps a row's status icon or text to the canonical enum.
func classifyRow(row *rod.Element) driver.Status {
	if icon, err := row.Element(selRowStatusIcon); err == nil {
		if text, err := icon.Text(); err == nil {
			if st, ok := ClassifyStatusText(text); ok {
				return st
			}
		}
		if attr, err := icon.Attribute("title"); err == nil && attr != nil {
			if st, ok := ClassifyStatusText(*attr); ok {
				return st
			}
		}
	}
	if text, err := row.Text(); err == nil {
		if st, ok := ClassifyStatusText(text); ok {
			return st
		}
	}
	return driver.StatusUnknown
}

// waitForArchive polls destDir until a finished zip shows up. Chrome
// writes .crdownload files while a transfer is in flight.
func waitForArchive(ctx context.Context, dir string, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				name := e.Name()
				if strings.HasSuffix(name, ".crdownload") {
					continue
				}
				if strings.HasSuffix(name, ".zip") {
					return nil
				}
			}
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("no archive appeared in %s", dir)
		}
		time.Sleep(time.Second)
	}
}
