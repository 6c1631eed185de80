package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dmitrymomot/postoffice"
	"github.com/dmitrymomot/postoffice/pkg/mailer"
)

type sendMailsRequest struct {
	Requests []postoffice.SendRequest `json:"requests"`
}

type outcomeResponse struct {
	AttemptID string `json:"attempt_id"`
	Status    string `json:"status"`
	Reason    string `json:"reason,omitempty"`
	Error     string `json:"error,omitempty"`
}

type sendMailsResponse struct {
	Outcomes []outcomeResponse `json:"outcomes"`
}

// sendMails answers 200 with one outcome per request, in request order.
// Individual failures do not fail the batch.
func (s *Server) sendMails(w http.ResponseWriter, r *http.Request) error {
	var req sendMailsRequest
	if err := s.decode(w, r, &req); err != nil {
		return err
	}
	if len(req.Requests) == 0 {
		return badRequest("empty_batch", "requests must not be empty", nil)
	}

	outcomes := s.mailer.Send(r.Context(), req.Requests)

	resp := sendMailsResponse{Outcomes: make([]outcomeResponse, len(outcomes))}
	for i, o := range outcomes {
		resp.Outcomes[i] = outcomeResponse{
			AttemptID: o.AttemptID.String(),
			Status:    string(o.Status),
			Reason:    string(o.Reason()),
		}
		if o.Err != nil {
			resp.Outcomes[i].Error = o.Err.Error()
		}
	}
	return writeJSON(w, http.StatusOK, resp)
}

type createTemplatesRequest struct {
	Templates []postoffice.CreateTemplateRequest `json:"templates"`
}

type createTemplatesResponse struct {
	Names []string `json:"names"`
}

func (s *Server) createTemplates(w http.ResponseWriter, r *http.Request) error {
	var req createTemplatesRequest
	if err := s.decode(w, r, &req); err != nil {
		return err
	}
	if len(req.Templates) == 0 {
		return badRequest("empty_batch", "templates must not be empty", nil)
	}

	if err := s.mailer.CreateTemplates(r.Context(), req.Templates); err != nil {
		switch {
		case errors.Is(err, mailer.ErrBlankTemplateName):
			return badRequest("blank_template_name", err.Error(), err)
		case errors.Is(err, mailer.ErrBlankTemplateBody):
			return badRequest("blank_template_body", err.Error(), err)
		case errors.Is(err, mailer.ErrTemplateExists):
			return newHTTPError(http.StatusConflict, "template_exists", err.Error(), err)
		}
		return err
	}

	names := make([]string, len(req.Templates))
	for i, t := range req.Templates {
		names[i] = strings.TrimSpace(t.Name)
	}
	return writeJSON(w, http.StatusCreated, createTemplatesResponse{Names: names})
}
