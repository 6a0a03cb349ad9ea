package attendance

import (
	"context"
	"net/mail"

	"github.com/trezcool/mahudhurio/core"
)

const defaultersTemplate = "defaulters"

// DefaultersNotice is the data of the defaulters email template.
type DefaultersNotice struct {
	Period      string
	ClassroomID string
	Subject     string
	Threshold   float64
	Defaulters  []Summary
}

// NotifyDefaulters computes the defaulters and emails them to the recipients.
// Nothing is sent when there are no recipients or no defaulters.
func (svc *Service) NotifyDefaulters(ctx context.Context, filter Filter, threshold float64, recipients []mail.Address) ([]Summary, error) {
	defaulters, err := svc.ComputeDefaulters(ctx, filter, threshold)
	if err != nil {
		return nil, err
	}
	if len(defaulters) == 0 || len(recipients) == 0 {
		return defaulters, nil
	}

	notice := DefaultersNotice{
		Period:      Period(filter),
		ClassroomID: filter.ClassroomID,
		Subject:     filter.Subject,
		Threshold:   threshold,
		Defaulters:  defaulters,
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           recipients,
		Subject:      "Attendance defaulters " + notice.Period,
		TemplateName: defaultersTemplate,
		TemplateData: notice,
	})
	return defaulters, nil
}

// Period describes the date range of a filter in plain words.
func Period(f Filter) string {
	switch {
	case !f.From.IsZero() && !f.To.IsZero():
		return "from " + f.From.String() + " to " + f.To.String()
	case !f.From.IsZero():
		return "since " + f.From.String()
	case !f.To.IsZero():
		return "until " + f.To.String()
	default:
		return "(all time)"
	}
}
