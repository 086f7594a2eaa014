package functions

import (
	"context"

	"github.com/amarjeet4296/hcn-email-management/internal/functions/local"
	"github.com/amarjeet4296/hcn-email-management/internal/logger"
)

// ClassifierMode selects how replies are classified
type ClassifierMode string

const (
	// ClassifierModeAI sends replies to the language model
	ClassifierModeAI ClassifierMode = "ai"
	// ClassifierModeLocal uses offline keyword and pattern heuristics
	ClassifierModeLocal ClassifierMode = "local"
)

// Oracle completes a classification prompt with raw text that should contain
// the JSON verdict
type Oracle interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// BookingContext is what the classifier knows about the matched booking
type BookingContext struct {
	GuestName         string
	HotelName         string
	OurReference      string
	SupplierReference string
}

// Classifier turns a reply into a validated verdict
type Classifier struct {
	mode   ClassifierMode
	oracle Oracle
}

// NewClassifier creates a classifier. oracle may be nil in local mode.
func NewClassifier(mode ClassifierMode, oracle Oracle) *Classifier {
	if mode != ClassifierModeLocal {
		mode = ClassifierModeAI
	}
	return &Classifier{mode: mode, oracle: oracle}
}

// Mode returns the active classifier mode
func (c *Classifier) Mode() ClassifierMode {
	return c.mode
}

// Classify never fails: oracle and parse errors degrade to a Non Critical
// verdict with reason "Analysis failed".
func (c *Classifier) Classify(ctx context.Context, subject, body string, b BookingContext) Verdict {
	var raw string
	var err error

	if c.mode == ClassifierModeLocal {
		raw = local.Analyze(local.Input{
			Subject:           subject,
			Body:              body,
			OurReference:      b.OurReference,
			SupplierReference: b.SupplierReference,
		})
	} else if c.oracle == nil {
		err = errNoOracle
	} else {
		raw, err = c.oracle.Complete(ctx, BuildPrompt(subject, body, b))
	}

	if err != nil {
		logger.WithModule("classify").Warnf("Oracle error for %s: %v", b.OurReference, err)
		v := FailOpen()
		v.ProcessedBy = string(c.mode)
		return v
	}

	v, err := ParseVerdict(raw)
	if err != nil {
		logger.WithModule("classify").Warnf("Unparsable verdict for %s: %v", b.OurReference, err)
		v = FailOpen()
		v.ProcessedBy = string(c.mode)
		return v
	}

	v = ValidateVerdict(v, b)
	v.ProcessedBy = string(c.mode)
	return v
}
