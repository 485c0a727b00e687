// README: User profile documents stored in the users collection.
package identity

import (
	"time"

	"campusride/internal/docstore"
	"campusride/internal/types"
)

const Collection = "users"

const (
	FieldUID         = "uid"
	FieldName        = "name"
	FieldEmail       = "email"
	FieldRole        = "role"
	FieldAvatarID    = "avatarId"
	FieldLastSeen    = "lastSeen"
	FieldDeviceToken = "deviceToken"
)

type User struct {
	UID         types.ID   `json:"uid"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Role        types.Role `json:"role"`
	AvatarID    string     `json:"avatarId,omitempty"`
	LastSeen    *time.Time `json:"lastSeen,omitempty"`
	DeviceToken string     `json:"-"`
}

// FromDocument reads a users document. The document id is authoritative for
// the uid; a user without a valid role is rejected.
func FromDocument(doc docstore.Document) (User, error) {
	d := doc.Data
	u := User{UID: types.ID(doc.ID)}
	role, _ := d[FieldRole].(string)
	u.Role = types.Role(role)
	if !u.Role.Valid() {
		return User{}, ErrMalformed
	}
	u.Name, _ = d[FieldName].(string)
	u.Email, _ = d[FieldEmail].(string)
	u.AvatarID, _ = d[FieldAvatarID].(string)
	u.DeviceToken, _ = d[FieldDeviceToken].(string)
	if t, ok := d[FieldLastSeen].(time.Time); ok && !t.IsZero() {
		u.LastSeen = &t
	}
	return u, nil
}
