package identity

import (
	"context"
	"sync"
)

// InMemDirectory is a map-backed UserDirectory
type InMemDirectory struct {
	mu     sync.Mutex
	users  map[int64]User
	nextID int64
}

func NewInMemDirectory(users ...User) *InMemDirectory {
	d := &InMemDirectory{users: make(map[int64]User)}
	for _, u := range users {
		d.Put(u)
	}
	return d
}

// Put stores or replaces a user. A zero id is assigned the next free id.
func (d *InMemDirectory) Put(u User) User {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u.ID == 0 {
		d.nextID++
		u.ID = d.nextID
	} else if u.ID > d.nextID {
		d.nextID = u.ID
	}
	d.users[u.ID] = u
	return u
}

func (d *InMemDirectory) FindByID(ctx context.Context, id int64) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return &u, nil
}

func (d *InMemDirectory) FindByEmail(ctx context.Context, email string) (*User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	email = NormalizeEmail(email)
	for _, u := range d.users {
		if NormalizeEmail(u.Email) == email {
			found := u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *InMemDirectory) CreateFromOAuth(ctx context.Context, o OAuthIdentity) (*User, error) {
	if _, err := d.FindByEmail(ctx, o.Email); err == nil {
		return nil, ErrEmailTaken
	}
	u := d.Put(User{
		Email:         NormalizeEmail(o.Email),
		Name:          o.Name,
		Role:          DefaultRole,
		ProviderImage: o.Image,
	})
	return &u, nil
}
