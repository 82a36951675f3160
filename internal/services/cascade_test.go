package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/workforce-api/internal/blob"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/models"
)

func (suite *ServiceTestSuite) TestDeactivateProject_CascadesToTasksWorkersAndWorklogs() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	t1 := suite.createTask(manager, project.ID, "Wire racks", ann.ID, bob.ID)
	t2 := suite.createTask(manager, project.ID, "Mount panels", ann.ID)

	_, err := suite.submit(suite.actor(ann), ann.ID, t1.ID, models.LogTypeWork)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.projects.Deactivate(suite.ctx, suite.actor(manager), project.ID))

	for _, id := range []uint64{t1.ID, t2.ID} {
		task := suite.reloadTask(id)
		suite.False(task.Active)
		suite.Empty(task.Workers)
	}
	suite.Empty(suite.reloadUser(ann.ID).Work)
	suite.Empty(suite.reloadUser(bob.ID).Work)

	stored, err := suite.projectRepo.FindByID(suite.ctx, project.ID)
	suite.Require().NoError(err)
	suite.False(stored.Active)

	// the open chain was closed; bob never logged and gets no entry
	state, err := suite.worklogs.State(suite.ctx, ann.ID, t1.ID)
	suite.Require().NoError(err)
	suite.Equal(models.LogTypeClose, state)

	state, err = suite.worklogs.State(suite.ctx, bob.ID, t1.ID)
	suite.Require().NoError(err)
	suite.Equal(models.LogType(""), state)

	// already inactive
	suite.NoError(suite.projects.Deactivate(suite.ctx, suite.actor(manager), project.ID))
}

func (suite *ServiceTestSuite) TestDeactivateTask_LeavesClosedChainsAlone() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID)
	actor := suite.actor(ann)

	_, err := suite.submit(actor, ann.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)
	_, err = suite.submit(actor, ann.ID, task.ID, models.LogTypeClose)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.tasks.Deactivate(suite.ctx, suite.actor(manager), task.ID))

	var count int64
	suite.Require().NoError(suite.db.Model(&models.WorkLog{}).Where("task_id = ?", task.ID).Count(&count).Error)
	suite.Equal(int64(2), count)

	_, err = suite.submit(actor, ann.ID, task.ID, models.LogTypeWork)
	suite.True(errors.Is(err, ErrValidation))
}

func (suite *ServiceTestSuite) TestDeactivateUser_RejectsProjectManager() {
	manager := suite.seedUser("boss", models.RoleManager)
	admin := suite.seedUser("root", models.RoleAdmin)
	project := suite.createProject(manager, "Field Lab Build")

	err := suite.users.Deactivate(suite.ctx, suite.actor(admin), manager.ID)
	suite.Require().Error(err)
	suite.True(errors.Is(err, ErrForbidden))

	var isManager *IsManagerError
	suite.Require().True(errors.As(err, &isManager))
	suite.Equal([]uint64{project.ID}, isManager.ProjectIDs)
	suite.True(suite.reloadUser(manager.ID).Active)
}

func (suite *ServiceTestSuite) TestDeactivateUser_ReleasesWorkAndIdentity() {
	manager := suite.seedUser("boss", models.RoleManager)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks")

	created, err := suite.users.Create(suite.ctx, suite.actor(manager), CreateUserInput{
		FirstName:   "Ann",
		LastName:    "Lee",
		Email:       "Ann@Example.com",
		PhoneNumber: "+10000000001",
		Role:        models.RoleEmployee,
		Login:       "ann",
		Password:    testPassword,
		FacePhoto:   "data:image/png;base64,aGVsbG8=",
		Work:        []uint64{task.ID},
	})
	suite.Require().NoError(err)
	ann := created.User
	subject := ann.FaceSubjectID
	suite.Require().NotEmpty(subject)

	_, err = suite.submit(suite.actor(ann), ann.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)

	suite.Require().NoError(suite.users.Deactivate(suite.ctx, suite.actor(manager), ann.ID))

	stored := suite.reloadUser(ann.ID)
	suite.False(stored.Active)
	suite.Empty(stored.Work)
	suite.Empty(stored.FaceSubjectID)
	suite.Empty(suite.reloadTask(task.ID).Workers)
	suite.Contains(suite.identity.deleted, subject)

	_, err = suite.blobs.Get(suite.ctx, blob.FaceKey(ann.ID))
	suite.True(errors.Is(err, blob.ErrNotFound))

	state, err := suite.worklogs.State(suite.ctx, ann.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal(models.LogTypeClose, state)

	// the login is free again
	_, err = suite.auth.Login(suite.ctx, LoginInput{Login: "ann", Password: testPassword})
	suite.True(errors.Is(err, ErrInvalidCredentials))
}

func (suite *ServiceTestSuite) TestDeactivate_RequiresManager() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")

	err := suite.projects.Deactivate(suite.ctx, suite.actor(ann), project.ID)
	suite.True(errors.Is(err, ErrForbidden))

	err = suite.projects.Deactivate(suite.ctx, suite.actor(manager), 777)
	suite.True(errors.Is(err, ErrNotFound))
}

func (suite *ServiceTestSuite) TestDeactivateProject_PartialFailureResumesOnRetry() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	t1 := suite.createTask(manager, project.ID, "Wire racks", ann.ID)
	t2 := suite.createTask(manager, project.ID, "Mount panels", bob.ID)

	_, err := suite.submit(suite.actor(bob), bob.ID, t2.ID, models.LogTypeWork)
	suite.Require().NoError(err)

	broken := NewDeactivator(&failingUserRepo{UserRepository: suite.userRepo, failOn: bob.ID}, suite.projectRepo,
		suite.taskRepo, suite.worklogs, suite.identity, suite.blobs, suite.locker, logger.NewNop())

	err = broken.Deactivate(suite.ctx, KindProject, project.ID)
	suite.Require().Error(err)
	suite.True(errors.Is(err, ErrPartialFailure))
	suite.True(errors.Is(err, errInjected))

	var partial *PartialFailureError
	suite.Require().True(errors.As(err, &partial))
	suite.Equal("deactivateTask", partial.Operation)
	suite.Equal(fmt.Sprintf("remove task from user %d", bob.ID), partial.Step)

	// earlier steps stay applied, later ones never ran
	suite.False(suite.reloadTask(t1.ID).Active)
	suite.Empty(suite.reloadUser(ann.ID).Work)
	suite.True(suite.reloadTask(t2.ID).Active)
	suite.Equal([]uint64{t2.ID}, []uint64(suite.reloadUser(bob.ID).Work))
	stored, err := suite.projectRepo.FindByID(suite.ctx, project.ID)
	suite.Require().NoError(err)
	suite.True(stored.Active)

	// the chain was already closed before the failing step
	state, err := suite.worklogs.State(suite.ctx, bob.ID, t2.ID)
	suite.Require().NoError(err)
	suite.Equal(models.LogTypeClose, state)

	suite.Require().NoError(suite.deactivator.Deactivate(suite.ctx, KindProject, project.ID))

	suite.False(suite.reloadTask(t2.ID).Active)
	suite.Empty(suite.reloadTask(t2.ID).Workers)
	suite.Empty(suite.reloadUser(bob.ID).Work)
	stored, err = suite.projectRepo.FindByID(suite.ctx, project.ID)
	suite.Require().NoError(err)
	suite.False(stored.Active)

	// the retry did not close the chain a second time
	var closes int64
	suite.Require().NoError(suite.db.Model(&models.WorkLog{}).
		Where("user_id = ? AND task_id = ? AND log_type = ?", bob.ID, t2.ID, models.LogTypeClose).
		Count(&closes).Error)
	suite.Equal(int64(1), closes)
}
