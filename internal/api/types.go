// File path: internal/api/types.go
package api

import (
	"encoding/json"
	"fmt"
)

// tagList accepts either a JSON array of strings or a single
// comma-separated string, so clients can post tags in whichever shape they
// have on hand.
type tagList []string

func (t *tagList) UnmarshalJSON(data []byte) error {
	if len(data) == 0 || string(data) == "null" {
		*t = nil
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*t = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*t = []string{single}
		return nil
	}
	return fmt.Errorf("tags must be a string or an array of strings")
}

type createEntryRequest struct {
	ProjectID string  `json:"project_id"`
	Category  string  `json:"category"`
	Content   string  `json:"content"`
	Tags      tagList `json:"tags"`
}

type updateEntryRequest struct {
	Category *string  `json:"category"`
	Content  *string  `json:"content"`
	Tags     *tagList `json:"tags"`
}

type upsertProjectRequest struct {
	LocalID         string  `json:"local_id"`
	AuthoritativeID *string `json:"authoritative_id"`
	Name            string  `json:"name"`
	Status          string  `json:"status"`
}
