package domain

import (
	"encoding/json"
	"maps"
	"time"
)

// TATPause is the snapshot taken when a ticket starts waiting on the
// requester. While present the resolution deadline is frozen and the
// remaining business hours are authoritative.
type TATPause struct {
	PausedAt       time.Time    `json:"paused_at"`
	RemainingHours float64      `json:"remaining_hours"`
	PausedFrom     TicketStatus `json:"paused_from"`
}

// Metadata is the typed view of the ticket's JSONB metadata column. Keys
// owned by other subsystems are kept in Extra and written back untouched.
type Metadata struct {
	TATPause           *TATPause      `json:"tat_pause,omitempty"`
	PreviousAssignedTo []string       `json:"previous_assigned_to,omitempty"`
	Extra              map[string]any `json:"-"`
}

const (
	metaKeyTATPause      = "tat_pause"
	metaKeyPreviousOwner = "previous_assigned_to"
)

// MarshalJSON flattens Extra alongside the typed keys.
func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+2)
	maps.Copy(out, m.Extra)
	if m.TATPause != nil {
		out[metaKeyTATPause] = m.TATPause
	}
	if len(m.PreviousAssignedTo) > 0 {
		out[metaKeyPreviousOwner] = m.PreviousAssignedTo
	}
	return json.Marshal(out)
}

// UnmarshalJSON splits the typed keys out of the raw object.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{}
	if v, ok := raw[metaKeyTATPause]; ok {
		if string(v) != "null" {
			var pause TATPause
			if err := json.Unmarshal(v, &pause); err != nil {
				return err
			}
			m.TATPause = &pause
		}
		delete(raw, metaKeyTATPause)
	}
	if v, ok := raw[metaKeyPreviousOwner]; ok {
		if err := json.Unmarshal(v, &m.PreviousAssignedTo); err != nil {
			return err
		}
		delete(raw, metaKeyPreviousOwner)
	}
	if len(raw) > 0 {
		m.Extra = make(map[string]any, len(raw))
		for k, v := range raw {
			var val any
			if err := json.Unmarshal(v, &val); err != nil {
				return err
			}
			m.Extra[k] = val
		}
	}
	return nil
}

// Clone deep-copies the metadata.
func (m Metadata) Clone() Metadata {
	c := Metadata{}
	if m.TATPause != nil {
		p := *m.TATPause
		c.TATPause = &p
	}
	if m.PreviousAssignedTo != nil {
		c.PreviousAssignedTo = append([]string(nil), m.PreviousAssignedTo...)
	}
	if m.Extra != nil {
		c.Extra = maps.Clone(m.Extra)
	}
	return c
}
