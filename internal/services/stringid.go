package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yukikurage/workforce-api/internal/constants"
	"github.com/yukikurage/workforce-api/internal/locker"
	"github.com/yukikurage/workforce-api/internal/repository"
)

// StringIDGenerator allocates human ids such as TASK_FLB_2.
type StringIDGenerator struct {
	projectRepo repository.ProjectRepository
	taskRepo    repository.TaskRepository
	locker      locker.Locker
}

func NewStringIDGenerator(projectRepo repository.ProjectRepository, taskRepo repository.TaskRepository, lk locker.Locker) *StringIDGenerator {
	return &StringIDGenerator{projectRepo: projectRepo, taskRepo: taskRepo, locker: lk}
}

// Acronym returns the upper-cased first letters of the title's words.
func Acronym(title string) string {
	var b strings.Builder
	for _, word := range strings.Fields(title) {
		r, _ := utf8.DecodeRuneInString(word)
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// Reserve returns the next id for kind and title. The prefix stays locked until
// release is called, which the caller does after the entity is stored, so two
// concurrent creations with the same acronym get different counters.
func (g *StringIDGenerator) Reserve(ctx context.Context, kind EntityKind, title string) (id string, release func(), err error) {
	var (
		head  string
		count func(context.Context, string) (int64, error)
	)
	switch kind {
	case KindTask:
		head, count = constants.StringIDPrefixTask, g.taskRepo.CountStringIDPrefix
	case KindProject:
		head, count = constants.StringIDPrefixProject, g.projectRepo.CountStringIDPrefix
	default:
		return "", nil, fmt.Errorf("no human id for %s", kind)
	}

	acronym := Acronym(title)
	if acronym == "" {
		return "", nil, invalid("title", "is required")
	}
	prefix := head + "_" + acronym + "_"

	release, err = g.locker.Lock(ctx, locker.StringIDKey(prefix))
	if err != nil {
		return "", nil, fmt.Errorf("failed to lock id prefix: %w", err)
	}

	n, err := count(ctx, prefix)
	if err != nil {
		release()
		return "", nil, fmt.Errorf("failed to count ids: %w", err)
	}

	return fmt.Sprintf("%s%d", prefix, n+1), release, nil
}
