package returns

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/erp/returns/internal/domain/shared"
)

const (
	documentDateLayout = "20060102"
	sequenceWidth      = 4
)

// DocumentNumber is the parsed form of {CODE}-{YYYYMMDD}-{seq}
type DocumentNumber struct {
	Type     ReturnType
	Date     string
	Sequence int
}

func (d DocumentNumber) String() string {
	return fmt.Sprintf("%s-%s-%0*d", d.Type.Code(), d.Date, sequenceWidth, d.Sequence)
}

// Prefix returns {CODE}-{YYYYMMDD}
func (d DocumentNumber) Prefix() string {
	return d.Type.Code() + "-" + d.Date
}

// DocumentPrefix builds the per-type, per-day prefix for day
func DocumentPrefix(t ReturnType, day time.Time) string {
	return t.Code() + "-" + day.Format(documentDateLayout)
}

// ParseDocumentNumber splits a document number into its parts
func ParseDocumentNumber(s string) (DocumentNumber, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 3 {
		return DocumentNumber{}, shared.NewInvalidArgumentError("Malformed document number %q", s)
	}
	t, ok := ReturnTypeFromCode(parts[0])
	if !ok {
		return DocumentNumber{}, shared.NewInvalidArgumentError("Unknown document type code in %q", s)
	}
	if _, err := time.Parse(documentDateLayout, parts[1]); err != nil {
		return DocumentNumber{}, shared.NewInvalidArgumentError("Bad date in document number %q", s)
	}
	if len(parts[2]) < sequenceWidth {
		return DocumentNumber{}, shared.NewInvalidArgumentError("Short sequence in document number %q", s)
	}
	seq, err := strconv.Atoi(parts[2])
	if err != nil || seq < 1 {
		return DocumentNumber{}, shared.NewInvalidArgumentError("Bad sequence in document number %q", s)
	}
	return DocumentNumber{Type: t, Date: parts[1], Sequence: seq}, nil
}

// NextDocumentNumber returns the number following last within prefix. An
// empty or foreign last starts the day at 0001.
func NextDocumentNumber(t ReturnType, day time.Time, last string) DocumentNumber {
	next := DocumentNumber{Type: t, Date: day.Format(documentDateLayout), Sequence: 1}
	if last == "" {
		return next
	}
	parsed, err := ParseDocumentNumber(last)
	if err != nil || parsed.Prefix() != next.Prefix() {
		return next
	}
	next.Sequence = parsed.Sequence + 1
	return next
}
