package server

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/inboxcrm/connector/crm"
)

type emailPayload struct {
	GraphMessageID    string              `json:"graphMessageId,omitempty"`
	InternetMessageID string              `json:"internetMessageId"`
	ConversationID    string              `json:"conversationId,omitempty"`
	Subject           string              `json:"subject"`
	BodyText          string              `json:"bodyText,omitempty"`
	Preview           string              `json:"preview,omitempty"`
	FromEmail         string              `json:"fromEmail"`
	FromName          string              `json:"fromName,omitempty"`
	ReceivedAt        string              `json:"receivedAt,omitempty"`
	WebLink           string              `json:"webLink,omitempty"`
	Attachments       []attachmentPayload `json:"attachments,omitempty"`
}

type attachmentPayload struct {
	Name          string `json:"name"`
	MimeType      string `json:"mimeType,omitempty"`
	Size          int64  `json:"size,omitempty"`
	ContentBase64 string `json:"contentBase64,omitempty"`
	IsInline      bool   `json:"isInline,omitempty"`
}

func (p emailPayload) toMessage() crm.EmailMessage {
	msg := crm.EmailMessage{
		GraphMessageID:    p.GraphMessageID,
		InternetMessageID: p.InternetMessageID,
		ConversationID:    p.ConversationID,
		Subject:           p.Subject,
		BodyText:          p.BodyText,
		Preview:           p.Preview,
		FromEmail:         p.FromEmail,
		FromName:          p.FromName,
		ReceivedAt:        p.ReceivedAt,
		WebLink:           p.WebLink,
	}
	for _, a := range p.Attachments {
		msg.Attachments = append(msg.Attachments, crm.Attachment{
			Name:          a.Name,
			MimeType:      a.MimeType,
			Size:          a.Size,
			ContentBase64: a.ContentBase64,
			IsInline:      a.IsInline,
		})
	}
	return msg
}

// withAdapter factors the shared preamble of every CRM handler: resolve the
// profile, authenticate, build the per-request adapter.
func (s *Server) withAdapter(w http.ResponseWriter, r *http.Request,
	fn func(adapter *crm.Adapter, identity *callIdentity)) {
	profile, err := s.resolveProfile(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	identity, err := s.authenticate(r, profile)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	adapter, err := s.adapterFor(profile, identity)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	fn(adapter, identity)
}

func (s *Server) ContactLookupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withAdapter(w, r, func(adapter *crm.Adapter, _ *callIdentity) {
			query := r.URL.Query()
			result, err := adapter.LookupByEmail(r.Context(), query.Get("email"), crm.LookupInclude{
				Account:  query.Get("includeAccount") == "true",
				Timeline: query.Get("includeTimeline") == "true",
			})
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusOK, result)
		})
	}
}

type personRequest struct {
	FirstName    string         `json:"firstName"`
	LastName     string         `json:"lastName"`
	Email        string         `json:"email"`
	Title        string         `json:"title,omitempty"`
	Phone        string         `json:"phone,omitempty"`
	Account      string         `json:"account,omitempty"`
	Source       string         `json:"source,omitempty"`
	CustomFields map[string]any `json:"customFields,omitempty"`
}

func (p personRequest) toInput() crm.PersonInput {
	return crm.PersonInput{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		Email:        p.Email,
		Title:        p.Title,
		Phone:        p.Phone,
		Account:      p.Account,
		Source:       p.Source,
		CustomFields: p.CustomFields,
	}
}

func (s *Server) CreateContactHandler() http.HandlerFunc {
	return s.createPersonHandler(func(adapter *crm.Adapter, r *http.Request, in crm.PersonInput) (*crm.PersonMatch, error) {
		return adapter.CreateContact(r.Context(), in)
	})
}

func (s *Server) CreateLeadHandler() http.HandlerFunc {
	return s.createPersonHandler(func(adapter *crm.Adapter, r *http.Request, in crm.PersonInput) (*crm.PersonMatch, error) {
		return adapter.CreateLead(r.Context(), in)
	})
}

func (s *Server) createPersonHandler(create func(*crm.Adapter, *http.Request, crm.PersonInput) (*crm.PersonMatch, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withAdapter(w, r, func(adapter *crm.Adapter, _ *callIdentity) {
			var req personRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.writeError(w, r, http.StatusBadRequest, "malformed request body")
				return
			}
			match, err := create(adapter, r, req.toInput())
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusCreated, match)
		})
	}
}

type logEmailRequest struct {
	Message     emailPayload `json:"message"`
	LinkModule  string       `json:"linkModule,omitempty"`
	LinkID      string       `json:"linkId,omitempty"`
	IncludeBody bool         `json:"includeBody,omitempty"`
}

func (s *Server) LogEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withAdapter(w, r, func(adapter *crm.Adapter, _ *callIdentity) {
			var req logEmailRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.writeError(w, r, http.StatusBadRequest, "malformed request body")
				return
			}
			logged, err := adapter.LogEmail(r.Context(), req.Message.toMessage(), crm.LogEmailOptions{
				LinkModule:         req.LinkModule,
				LinkID:             req.LinkID,
				IncludeBody:        req.IncludeBody,
				MaxAttachmentBytes: s.config.GetMaxAttachmentBytes(),
			})
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusCreated, logged)
		})
	}
}

type taskRequest struct {
	Message    emailPayload `json:"message"`
	LinkModule string       `json:"linkModule,omitempty"`
	LinkID     string       `json:"linkId,omitempty"`
}

func (s *Server) TaskFromEmailHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withAdapter(w, r, func(adapter *crm.Adapter, identity *callIdentity) {
			var req taskRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				s.writeError(w, r, http.StatusBadRequest, "malformed request body")
				return
			}
			result, err := adapter.CreateTaskFromEmail(r.Context(), req.Message.toMessage(), crm.TaskContext{
				LinkModule: req.LinkModule,
				LinkID:     req.LinkID,
			}, identity.audit())
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			status := http.StatusCreated
			if result.Deduplicated {
				status = http.StatusOK
			}
			s.writeJSON(w, status, result)
		})
	}
}

func (s *Server) OpportunitiesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.withAdapter(w, r, func(adapter *crm.Adapter, _ *callIdentity) {
			query := r.URL.Query()
			limit, _ := strconv.Atoi(query.Get("limit"))
			result, err := adapter.ListOpportunities(r.Context(),
				query.Get("module"), query.Get("id"), query.Get("accountId"), limit)
			if err != nil {
				s.respondError(w, r, err)
				return
			}
			s.writeJSON(w, http.StatusOK, result)
		})
	}
}
