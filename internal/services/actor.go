package services

import "github.com/yukikurage/workforce-api/internal/models"

// Actor is the authenticated caller of an operation, re-read from the store for each request.
type Actor struct {
	ID     uint64
	Role   models.Role
	Active bool
	Name   string
	// Work is the actor's assigned task list, used for visibility.
	Work []uint64
}

// ActorFromUser builds the actor for a loaded user record.
func ActorFromUser(u *models.User) Actor {
	return Actor{
		ID:     u.ID,
		Role:   u.Role,
		Active: u.Active,
		Name:   u.FirstName,
		Work:   append([]uint64(nil), u.Work...),
	}
}

func (a Actor) requireActive() error {
	if !a.Active {
		return forbidden("actor is inactive")
	}
	return nil
}

func (a Actor) requireManager() error {
	if err := a.requireActive(); err != nil {
		return err
	}
	if !a.Role.CanManage() {
		return forbidden("requires MANAGER or ADMIN role")
	}
	return nil
}

func (a Actor) requireAdmin() error {
	if err := a.requireActive(); err != nil {
		return err
	}
	if a.Role != models.RoleAdmin {
		return forbidden("requires ADMIN role")
	}
	return nil
}

func (a Actor) isEmployee() bool {
	return a.Role == models.RoleEmployee
}
