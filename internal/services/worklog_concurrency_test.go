package services

import (
	"sync"

	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/models"
)

func (suite *ServiceTestSuite) TestSubmit_TaskDeactivatedDuringSubmitEndsClosed() {
	manager := suite.seedUser("boss", models.RoleManager)
	worker := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", worker.ID)
	actor := suite.actor(worker)

	_, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeWork)
	suite.Require().NoError(err)
	_, err = suite.submit(actor, worker.ID, task.ID, models.LogTypeBreak)
	suite.Require().NoError(err)

	// the task is deactivated right after Submit has read it
	hook, wait := inBackground(func() error {
		return suite.deactivator.Deactivate(suite.ctx, KindTask, task.ID)
	})
	worklogs := NewWorkLogService(suite.userRepo, &hookTaskRepo{TaskRepository: suite.taskRepo, onFind: hook},
		suite.logRepo, suite.locker, logger.NewNop())
	worklogs.now = suite.worklogs.now

	_, err = worklogs.Submit(suite.ctx, actor, SubmitWorkLogInput{UserID: worker.ID, TaskID: task.ID, LogType: models.LogTypeWork})
	suite.Require().NoError(err)
	suite.Require().NoError(wait())

	suite.False(suite.reloadTask(task.ID).Active)
	state, err := suite.worklogs.State(suite.ctx, worker.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal(models.LogTypeClose, state, "an inactive task keeps no open chain")
}

func (suite *ServiceTestSuite) TestSubmit_UserDeactivatedDuringSubmitEndsClosed() {
	manager := suite.seedUser("boss", models.RoleManager)
	worker := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", worker.ID)
	actor := suite.actor(worker)

	hook, wait := inBackground(func() error {
		return suite.deactivator.Deactivate(suite.ctx, KindUser, worker.ID)
	})
	worklogs := NewWorkLogService(&hookUserRepo{UserRepository: suite.userRepo, onFind: hook}, suite.taskRepo,
		suite.logRepo, suite.locker, logger.NewNop())
	worklogs.now = suite.worklogs.now

	_, err := worklogs.Submit(suite.ctx, actor, SubmitWorkLogInput{UserID: worker.ID, TaskID: task.ID, LogType: models.LogTypeWork})
	suite.Require().NoError(err)
	suite.Require().NoError(wait())

	suite.False(suite.reloadUser(worker.ID).Active)
	state, err := suite.worklogs.State(suite.ctx, worker.ID, task.ID)
	suite.Require().NoError(err)
	suite.Equal(models.LogTypeClose, state, "an inactive user keeps no open chain")
}

func (suite *ServiceTestSuite) TestSubmit_ConcurrentWorkOnOnePairIsSerialized() {
	manager := suite.seedUser("boss", models.RoleManager)
	worker := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", worker.ID)
	actor := suite.actor(worker)

	const n = 10
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := suite.submit(actor, worker.ID, task.ID, models.LogTypeWork)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		suite.NoError(err)
	}

	var logs []models.WorkLog
	suite.Require().NoError(suite.db.
		Where("user_id = ? AND task_id = ?", worker.ID, task.ID).
		Order("log_date, id").
		Find(&logs).Error)

	// one opening WORK, then an AUTOBREAK + WORK pair per later submission
	suite.Require().Len(logs, 1+2*(n-1))
	for i, l := range logs {
		want := models.LogTypeWork
		if i%2 == 1 {
			want = models.LogTypeAutoBreak
		}
		suite.Equal(want, l.LogType, "entry %d", i)
		if i > 0 {
			suite.True(l.LogDate.After(logs[i-1].LogDate), "entry %d is not newer than its predecessor", i)
		}
	}
}
