package auth

import "go.mongodb.org/mongo-driver/bson/primitive"

// Principal is the authenticated identity attached to a request or channel
// session. It is threaded explicitly through the call chain; nothing in this
// layer relies on ambient global state.
type Principal struct {
	UserID primitive.ObjectID
	Role   string
}
