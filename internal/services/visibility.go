package services

import (
	"github.com/yukikurage/workforce-api/internal/repository"
	"gorm.io/gorm"
)

// VisibilityScope returns the predicate limiting what actor may list of kind.
// Managers and admins see every active record; employees see what their
// assignments reach and may not list users at all.
func VisibilityScope(kind EntityKind, actor Actor) ([]repository.Scope, error) {
	if err := actor.requireActive(); err != nil {
		return nil, err
	}
	if !actor.isEmployee() {
		return nil, nil
	}

	work := actor.Work
	switch kind {
	case KindTask:
		return []repository.Scope{idIn("id", work)}, nil
	case KindProject:
		return []repository.Scope{func(db *gorm.DB) *gorm.DB {
			if len(work) == 0 {
				return db.Where("1 = 0")
			}
			return db.Where("id IN (?)", db.Session(&gorm.Session{NewDB: true}).
				Table("tasks").Select("project_id").Where("id IN ?", work))
		}}, nil
	case KindWorkLog:
		return []repository.Scope{idIn("user_id", []uint64{actor.ID})}, nil
	default:
		return nil, forbidden("employees cannot list " + string(kind) + "s")
	}
}

func idIn(column string, ids []uint64) repository.Scope {
	return func(db *gorm.DB) *gorm.DB {
		if len(ids) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where(column+" IN ?", ids)
	}
}
