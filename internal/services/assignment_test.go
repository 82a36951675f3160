package services

import (
	"errors"

	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/models"
)

func (suite *ServiceTestSuite) TestSetTaskWorkers_MirrorsUserWork() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID)

	suite.ElementsMatch([]uint64{task.ID}, suite.reloadUser(ann.ID).Work)

	workers, err := suite.assignments.SetTaskWorkers(suite.ctx, task.ID, []uint64{bob.ID, bob.ID})
	suite.Require().NoError(err)
	suite.Equal([]uint64{bob.ID}, workers)

	suite.Empty(suite.reloadUser(ann.ID).Work)
	suite.Equal([]uint64{task.ID}, []uint64(suite.reloadUser(bob.ID).Work))
	suite.Equal([]uint64{bob.ID}, []uint64(suite.reloadTask(task.ID).Workers))
}

func (suite *ServiceTestSuite) TestSetUserWork_MirrorsTaskWorkers() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	t1 := suite.createTask(manager, project.ID, "Wire racks")
	t2 := suite.createTask(manager, project.ID, "Mount panels")

	_, err := suite.assignments.SetUserWork(suite.ctx, ann.ID, []uint64{t1.ID, t2.ID})
	suite.Require().NoError(err)
	suite.Equal([]uint64{ann.ID}, []uint64(suite.reloadTask(t1.ID).Workers))
	suite.Equal([]uint64{ann.ID}, []uint64(suite.reloadTask(t2.ID).Workers))

	_, err = suite.assignments.SetUserWork(suite.ctx, ann.ID, []uint64{t2.ID})
	suite.Require().NoError(err)
	suite.Empty(suite.reloadTask(t1.ID).Workers)
	suite.Equal([]uint64{t2.ID}, []uint64(suite.reloadUser(ann.ID).Work))
}

func (suite *ServiceTestSuite) TestSetTaskWorkers_SameSetIsNoop() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID)
	before := suite.reloadTask(task.ID).UpdatedAt

	workers, err := suite.assignments.SetTaskWorkers(suite.ctx, task.ID, []uint64{ann.ID})
	suite.Require().NoError(err)
	suite.Equal([]uint64{ann.ID}, workers)
	suite.Equal(before, suite.reloadTask(task.ID).UpdatedAt)
}

func (suite *ServiceTestSuite) TestSetTaskWorkers_RejectsInactiveOrMissingUsersBeforeWriting() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	gone := suite.seedUser("gone", models.RoleEmployee)
	suite.Require().NoError(suite.userRepo.Deactivate(suite.ctx, gone.ID))
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks")

	_, err := suite.assignments.SetTaskWorkers(suite.ctx, task.ID, []uint64{ann.ID, gone.ID})
	suite.True(errors.Is(err, ErrValidation))

	_, err = suite.assignments.SetTaskWorkers(suite.ctx, task.ID, []uint64{ann.ID, 4242})
	suite.True(errors.Is(err, ErrNotFound))

	suite.Empty(suite.reloadUser(ann.ID).Work)
	suite.Empty(suite.reloadTask(task.ID).Workers)
}

func (suite *ServiceTestSuite) TestSetUserWork_PartialFailureIsRepairedByReconcile() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	t1 := suite.createTask(manager, project.ID, "Wire racks")
	t2 := suite.createTask(manager, project.ID, "Mount panels")

	broken := NewAssignmentManager(suite.userRepo, &failingTaskRepo{TaskRepository: suite.taskRepo, failOn: t2.ID},
		suite.locker, logger.NewNop())

	_, err := broken.SetUserWork(suite.ctx, ann.ID, []uint64{t1.ID, t2.ID})
	suite.Require().Error(err)
	suite.True(errors.Is(err, ErrPartialFailure))
	suite.True(errors.Is(err, errInjected))

	var partial *PartialFailureError
	suite.Require().True(errors.As(err, &partial))
	suite.Equal("setUserWork", partial.Operation)

	// t1 already lists ann but her own list was never written
	suite.Equal([]uint64{ann.ID}, []uint64(suite.reloadTask(t1.ID).Workers))
	suite.Empty(suite.reloadUser(ann.ID).Work)

	result, err := suite.assignments.Reconcile(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal([]uint64{ann.ID}, result.Repaired)
	suite.Equal([]uint64{t1.ID}, []uint64(suite.reloadUser(ann.ID).Work))

	again, err := suite.assignments.Reconcile(suite.ctx)
	suite.Require().NoError(err)
	suite.Empty(again.Repaired)
}

func (suite *ServiceTestSuite) TestReconcile_DropsStaleWorkEntries() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks")

	suite.Require().NoError(suite.userRepo.UpdateWork(suite.ctx, ann.ID, []uint64{task.ID}))

	result, err := suite.assignments.Reconcile(suite.ctx)
	suite.Require().NoError(err)
	suite.Equal([]uint64{ann.ID}, result.Repaired)
	suite.Empty(suite.reloadUser(ann.ID).Work)
}
