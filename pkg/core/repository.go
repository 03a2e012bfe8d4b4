package core

import "context"

// Store defines the contract of the remote row store holding notes.
// Every call is scoped by the owner id; a note is never visible to another owner.
type Store interface {
	// List returns all notes of the owner, newest creation first.
	List(ctx context.Context, ownerID string) ([]Note, error)

	// Insert creates an empty note and returns it with the store-assigned
	// ID, CreatedAt and LastModified.
	Insert(ctx context.Context, ownerID string) (Note, error)

	// Update applies a partial update to the note with the given ID.
	// It returns ErrNotFound if the owner has no such note.
	Update(ctx context.Context, ownerID, id string, p Patch) error

	// Delete removes the note with the given ID.
	// It returns ErrNotFound if the owner has no such note.
	Delete(ctx context.Context, ownerID, id string) error
}

// Initializer is implemented by stores that need setup (schema migration).
type Initializer interface {
	Initialize(ctx context.Context) error
}

// SignUpResult is returned by AuthProvider.SignUp.
type SignUpResult struct {
	User User
	// ConfirmationRequired is set when the account must be confirmed before
	// the first sign-in. Token is the confirmation token in that case.
	ConfirmationRequired bool
	Token                string
}

// AuthProvider defines the contract of the email/password identity service.
type AuthProvider interface {
	SignIn(ctx context.Context, email, password string) (User, error)
	SignUp(ctx context.Context, email, password string, profile map[string]string) (SignUpResult, error)
	Confirm(ctx context.Context, token string) (User, error)
	SignOut(ctx context.Context) error

	// Current returns the user of the persisted session, or ErrNotSignedIn.
	Current(ctx context.Context) (User, error)
}
