package dto

import (
	"time"

	authDomain "github.com/allisson/token-rest/internal/auth/domain"
)

// IssueTokenResponse is the bearer token and its expiry.
type IssueTokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuditLogResponse is the public view of an audit entry. The signature itself
// is not exposed.
type AuditLogResponse struct {
	ID          string         `json:"id"`
	RequestID   string         `json:"request_id"`
	ClientID    string         `json:"client_id"`
	Capability  string         `json:"capability"`
	Path        string         `json:"path"`
	Outcome     string         `json:"outcome"`
	Reason      string         `json:"reason,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	IsSigned    bool           `json:"is_signed"`
	MasterKeyID string         `json:"master_key_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// ListAuditLogsResponse wraps a page of audit entries.
type ListAuditLogsResponse struct {
	Data []AuditLogResponse `json:"data"`
}

// MapAuditLogsToListResponse converts a page of audit entries.
func MapAuditLogsToListResponse(logs []*authDomain.AuditLog) ListAuditLogsResponse {
	data := make([]AuditLogResponse, 0, len(logs))
	for _, l := range logs {
		resp := AuditLogResponse{
			ID:         l.ID.String(),
			RequestID:  l.RequestID,
			ClientID:   l.ClientID.String(),
			Capability: string(l.Capability),
			Path:       l.Path,
			Outcome:    l.Outcome,
			Reason:     l.Reason,
			Metadata:   l.Metadata,
			IsSigned:   l.IsSigned,
			CreatedAt:  l.CreatedAt,
		}
		if l.MasterKeyID != nil {
			resp.MasterKeyID = *l.MasterKeyID
		}
		data = append(data, resp)
	}
	return ListAuditLogsResponse{Data: data}
}
