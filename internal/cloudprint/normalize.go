package cloudprint

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/kozaktomas/photo-booth/internal/config"
)

// Status is the normalized print job status.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusPrinting  Status = "printing"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusError     Status = "error"
)

// stateProcessing is reported as the original state when the provider has
// not published the job yet.
const stateProcessing = "processing"

// Terminal states are checked first.
var stateGroups = []struct {
	status Status
	states []string
}{
	{StatusCompleted, []string{"completed", "printed", "finished", "done"}},
	{StatusFailed, []string{"failed", "error", "cancelled", "canceled", "aborted", "expired"}},
	{StatusQueued, []string{"queued", "waiting", "pending", "new", "held"}},
	{StatusPrinting, []string{"in-progress", "printing", "processing", "sent-to-client", "downloading"}},
}

// Result is the normalized view of a job and its printer.
type Result struct {
	Status         Status `json:"status"`
	Message        string `json:"message"`
	OriginalState  string `json:"originalState,omitempty"`
	JobID          string `json:"jobId,omitempty"`
	PrinterOnline  bool   `json:"printerOnline"`
	SupportsPhoto  bool   `json:"supports_photo"`
	SupportsLetter bool   `json:"supports_letter"`
}

// Observation is everything fetched from the provider in one poll. Errors
// are kept so the normalizer can decide which of them are tolerable.
type Observation struct {
	JobID      string
	Job        *Job
	JobErr     error
	Printer    *Printer
	PrinterErr error
}

// UnreliableDataError describes provider data that was replaced with a
// best guess. It is only logged.
type UnreliableDataError struct {
	Field string
	Value string
	Guess Status
}

func (e *UnreliableDataError) Error() string {
	return fmt.Sprintf("unreliable provider data: %s=%q, assuming %s", e.Field, e.Value, e.Guess)
}

// Normalizer maps provider states to Status.
type Normalizer struct {
	media config.MediaConfig
	log   zerolog.Logger
}

// NewNormalizer creates a normalizer using media to guess printer capabilities.
func NewNormalizer(media config.MediaConfig, log zerolog.Logger) *Normalizer {
	return &Normalizer{
		media: media,
		log:   log.With().Str("component", "normalizer").Logger(),
	}
}

// Normalize never fails. Missing or odd provider data resolves to the most
// optimistic status that still makes sense.
func (n *Normalizer) Normalize(obs Observation) Result {
	res := Result{JobID: obs.JobID}
	res.SupportsPhoto, res.SupportsLetter = n.capabilities(obs.Printer)

	switch {
	case obs.Printer != nil:
		res.PrinterOnline = obs.Printer.Online()
	case obs.PrinterErr != nil:
		n.log.Debug().Err(obs.PrinterErr).Msg("Printer lookup failed")
	}

	if obs.JobID == "" {
		res.Status = StatusError
		res.Message = "No print job id"
		return res
	}

	if obs.JobErr != nil {
		if !IsNotFoundError(obs.JobErr) {
			res.Status = StatusError
			res.Message = fmt.Sprintf("Could not fetch print job: %v", obs.JobErr)
			return res
		}
		n.report(&UnreliableDataError{Field: "job", Value: "not found", Guess: StatusPrinting}, obs.JobID)
		res.Status = StatusPrinting
		res.OriginalState = stateProcessing
		res.Message = "Print job is being processed"
		return res
	}

	if obs.Job == nil || strings.TrimSpace(obs.Job.State) == "" {
		n.report(&UnreliableDataError{Field: "state", Value: "", Guess: StatusPrinting}, obs.JobID)
		res.Status = StatusPrinting
		res.OriginalState = stateProcessing
		res.Message = "Print job is being processed"
		return res
	}

	res.OriginalState = obs.Job.State
	status, ok := mapState(obs.Job.State)
	if !ok {
		n.report(&UnreliableDataError{Field: "state", Value: obs.Job.State, Guess: StatusPrinting}, obs.JobID)
		res.Status = StatusPrinting
		res.Message = fmt.Sprintf("Printing (provider reported %q)", obs.Job.State)
		return res
	}

	res.Status = status
	res.Message = statusMessage(status, res.PrinterOnline, obs.Printer != nil)
	return res
}

func (n *Normalizer) report(err *UnreliableDataError, jobID string) {
	n.log.Debug().Err(err).Str("job_id", jobID).Msg("Using best guess for print job status")
}

// capabilities guesses paper support from the printer's media names.
// Without media data both are assumed supported.
func (n *Normalizer) capabilities(p *Printer) (photo, letter bool) {
	if p == nil || p.Capabilities == nil || len(p.Capabilities.Medias) == 0 {
		return true, true
	}
	for _, media := range p.Capabilities.Medias {
		folded := foldState(media)
		if !photo && containsAny(folded, n.media.Photo) {
			photo = true
		}
		if !letter && containsAny(folded, n.media.Letter) {
			letter = true
		}
	}
	return photo, letter
}

func containsAny(s string, fragments []string) bool {
	for _, f := range fragments {
		if f != "" && strings.Contains(s, foldState(f)) {
			return true
		}
	}
	return false
}

func mapState(state string) (Status, bool) {
	folded := foldState(state)
	for _, group := range stateGroups {
		for _, s := range group.states {
			if folded == s {
				return group.status, true
			}
		}
	}
	return "", false
}

func statusMessage(status Status, online, knownPrinter bool) string {
	switch status {
	case StatusCompleted:
		return "Print job completed"
	case StatusFailed:
		return "Print job failed"
	case StatusQueued:
		if knownPrinter && !online {
			return "Print job is queued, printer is offline"
		}
		return "Print job is queued"
	default:
		return "Printing"
	}
}

// foldState lowercases s, strips diacritics and joins words with dashes
// ("In Progress", "in_progress" and "IN-PROGRESS" all fold to "in-progress").
func foldState(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, _ = transform.String(t, s)
	s = cases.Fold().String(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '_' || r == '-'
	}), "-")
}
