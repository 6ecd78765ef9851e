package models

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// FamilyProfile is the portal profile of a family user.
type FamilyProfile struct {
	UID         string                      `gorm:"primaryKey;size:128" json:"uid"`
	DisplayName string                      `gorm:"size:160" json:"display_name"`
	Role        string                      `gorm:"size:32;not null" json:"role"`
	ChildIDs    datatypes.JSONSlice[string] `gorm:"column:child_ids;type:json" json:"child_ids"`
}

// Child is a student record. Responsables holds the guardian references as
// they were written by the different portal versions: either bare UID strings
// or objects carrying a uid field.
type Child struct {
	ID            string         `gorm:"primaryKey;size:64" json:"id"`
	Name          string         `gorm:"size:160" json:"name"`
	Ambiente      string         `gorm:"size:16;index" json:"ambiente"`
	Responsables  datatypes.JSON `gorm:"type:json" json:"responsables"`
	GuardianIndex string         `gorm:"column:guardian_index;type:text;index" json:"-"`
}

// BeforeSave refreshes the guardian index used for membership queries.
func (c *Child) BeforeSave(tx *gorm.DB) error {
	c.GuardianIndex = EncodeGuardianIndex(c.GuardianUIDs())
	return nil
}

// GuardianUIDs returns the normalized guardian identifiers of the child.
func (c Child) GuardianUIDs() []string {
	return ParseGuardianRefs(c.Responsables)
}

// HasGuardian reports whether uid is listed among the child's guardians.
func (c Child) HasGuardian(uid string) bool {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return false
	}
	for _, guardian := range c.GuardianUIDs() {
		if guardian == uid {
			return true
		}
	}
	return false
}

// ParseGuardianRefs decodes a raw responsables array into canonical UIDs.
// Malformed payloads yield no guardians.
func ParseGuardianRefs(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var refs []json.RawMessage
	if err := json.Unmarshal(raw, &refs); err != nil {
		return nil
	}
	uids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if uid, ok := NormalizeGuardianRef(ref); ok {
			uids = append(uids, uid)
		}
	}
	return uids
}

// NormalizeGuardianRef maps a guardian reference, either "uid" or
// {"uid": "..."}, to its identifier.
func NormalizeGuardianRef(ref json.RawMessage) (string, bool) {
	var uid string
	if err := json.Unmarshal(ref, &uid); err == nil {
		uid = strings.TrimSpace(uid)
		return uid, uid != ""
	}

	var object struct {
		UID string `json:"uid"`
	}
	if err := json.Unmarshal(ref, &object); err == nil {
		uid = strings.TrimSpace(object.UID)
		return uid, uid != ""
	}

	return "", false
}

// EncodeGuardianIndex builds the "|a|b|" index searched with LIKE.
func EncodeGuardianIndex(uids []string) string {
	cleaned := make([]string, 0, len(uids))
	for _, uid := range uids {
		trimmed := strings.TrimSpace(uid)
		if trimmed == "" || strings.Contains(trimmed, "|") {
			continue
		}
		cleaned = append(cleaned, trimmed)
	}
	if len(cleaned) == 0 {
		return ""
	}
	return "|" + strings.Join(cleaned, "|") + "|"
}
