package afserver

// Page selectors for the submit form and the job table. Kept in one
// place so a server UI change is a one-file fix.
const (
	selSequenceInput = `textarea[name="sequence"], textarea#sequenceInput`
	selJobNameInput  = `input[name="jobName"], input#jobNameInput`
	selSubmitButton  = `button[type="submit"]`
	selJobRow        = `table tbody tr`
	selRowStatusIcon = `mat-icon, .status-icon`
	selRowDownload   = `button[aria-label*="Download" i], a[download]`
)
