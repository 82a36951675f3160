package services

import (
	"errors"
	"time"

	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/utils"
)

func (suite *ServiceTestSuite) TestSubmit_WorkOverOpenSessionInsertsAutoBreak() {
	manager := suite.seedUser("boss", models.RoleManager)
	worker := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", worker.ID)
	actor := suite.actor(worker)

	first, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)
	suite.Require().Len(first, 1)

	second, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)
	suite.Require().Len(second, 2)
	suite.Equal(models.LogTypeAutoBreak, second[0].LogType)
	suite.Equal(models.LogTypeWork, second[1].LogType)

	// The clock did not move, yet every entry is strictly newer than the previous one.
	suite.True(second[0].LogDate.After(first[0].LogDate))
	suite.True(second[1].LogDate.After(second[0].LogDate))

	state, err := suite.worklogs.State(suite.ctx, worker.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal(models.LogTypeWork, state)
}

func (suite *ServiceTestSuite) TestSubmit_RejectsIllegalTransitionWithoutWriting() {
	manager := suite.seedUser("boss", models.RoleManager)
	worker := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", worker.ID)
	actor := suite.actor(worker)

	_, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeBreak)
	suite.True(errors.Is(err, ErrInvalidTransition))

	_, err = suite.submit(actor, worker.ID, task.ID, models.LogTypeClose)
	suite.True(errors.Is(err, ErrInvalidTransition))

	logs, total, err := suite.worklogs.List(suite.ctx, actor, repository.Query{}, repository.ListOptions{
		Pagination: utils.NewPaginationParams(1, 20),
	})
	suite.Require().NoError(err)
	suite.Empty(logs)
	suite.Equal(int64(0), total)
}

func (suite *ServiceTestSuite) TestSubmit_ClosedChainReopensWithWork() {
	manager := suite.seedUser("boss", models.RoleManager)
	worker := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", worker.ID)
	actor := suite.actor(worker)

	for _, t := range []models.LogType{models.LogTypeWork, models.LogTypeBreak, models.LogTypeClose} {
		_, err := suite.submit(actor, worker.ID, task.ID, t)
		suite.Require().NoError(err, "submit %s", t)
	}

	_, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeClose)
	suite.True(errors.Is(err, ErrInvalidTransition))

	entries, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)
	suite.Len(entries, 1)
}

func (suite *ServiceTestSuite) TestSubmit_ClockSteppingBackKeepsOrder() {
	manager := suite.seedUser("boss", models.RoleManager)
	worker := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", worker.ID)
	actor := suite.actor(worker)

	first, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)

	suite.now = suite.now.Add(-time.Hour)
	second, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeBreak)
	suite.Require().NoError(err)
	suite.True(second[0].LogDate.After(first[0].LogDate))
}

func (suite *ServiceTestSuite) TestSubmit_PairsAreIndependent() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID, bob.ID)

	_, err := suite.submit(suite.actor(ann), ann.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)

	// bob's chain on the same task has no history
	_, err = suite.submit(suite.actor(bob), bob.ID, task.ID, models.LogTypeBreak)
	suite.True(errors.Is(err, ErrInvalidTransition))
}

func (suite *ServiceTestSuite) TestSubmit_Permissions() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID)

	_, err := suite.submit(suite.actor(bob), ann.ID, task.ID, models.LogTypeWork)
	suite.True(errors.Is(err, ErrForbidden))

	// managers may log on behalf of others
	_, err = suite.submit(suite.actor(manager), ann.ID, task.ID, models.LogTypeWork)
	suite.NoError(err)

	_, err = suite.submit(suite.actor(ann), ann.ID, 9999, models.LogTypeWork)
	suite.True(errors.Is(err, ErrNotFound))
}

func (suite *ServiceTestSuite) TestWorkLogList_EmployeeSeesOwnEntries() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID, bob.ID)

	_, err := suite.submit(suite.actor(ann), ann.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)
	_, err = suite.submit(suite.actor(bob), bob.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)

	opts := repository.ListOptions{Pagination: utils.NewPaginationParams(1, 20)}

	logs, total, err := suite.worklogs.List(suite.ctx, suite.actor(ann), repository.Query{}, opts)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(ann.ID, logs[0].UserID)

	_, total, err = suite.worklogs.List(suite.ctx, suite.actor(manager), repository.Query{}, opts)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
}
