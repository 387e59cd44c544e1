package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Moderation actions recorded in the journal.
const (
	ActionResetPassword = "reset_password"
	ActionToggleActive  = "toggle_active"
	ActionDeleteUser    = "delete_user"
	ActionDeletePost    = "delete_post"
)

// AuditEvent is one moderation action stored in MongoDB.
type AuditEvent struct {
	ID        primitive.ObjectID `json:"id"         bson:"_id,omitempty"`
	Action    string             `json:"action"     bson:"action"`
	Actor     string             `json:"actor"      bson:"actor"`
	TargetID  int64              `json:"target_id"  bson:"target_id"`
	Detail    string             `json:"detail"     bson:"detail"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
