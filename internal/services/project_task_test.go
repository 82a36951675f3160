package services

import (
	"errors"
	"time"

	"github.com/yukikurage/workforce-api/internal/models"
	"github.com/yukikurage/workforce-api/internal/repository"
	"github.com/yukikurage/workforce-api/internal/utils"
)

func (suite *ServiceTestSuite) TestAcronym() {
	suite.Equal("FLB", Acronym("First Level bug"))
	suite.Equal("Ü", Acronym("  über  "))
	suite.Equal("", Acronym("   "))
}

func (suite *ServiceTestSuite) TestCreateTask_AllocatesSequentialStringIDs() {
	manager := suite.seedUser("boss", models.RoleManager)
	project := suite.createProject(manager, "Field Lab Build")
	suite.Equal("PROJ_FLB_1", project.StringID)

	first := suite.createTask(manager, project.ID, "First Level Bug")
	second := suite.createTask(manager, project.ID, "Fix Login Button")
	suite.Equal("TASK_FLB_1", first.StringID)
	suite.Equal("TASK_FLB_2", second.StringID)

	// counters survive deactivation
	suite.Require().NoError(suite.tasks.Deactivate(suite.ctx, suite.actor(manager), first.ID))
	third := suite.createTask(manager, project.ID, "Find Lost Boxes")
	suite.Equal("TASK_FLB_3", third.StringID)
}

func (suite *ServiceTestSuite) TestCreateTask_DutyDateWindow() {
	manager := suite.seedUser("boss", models.RoleManager)
	project := suite.createProject(manager, "Field Lab Build")
	actor := suite.actor(manager)

	input := CreateTaskInput{
		Title:       "Wire racks",
		Description: "all of them",
		ProjectID:   project.ID,
	}

	input.DutyDate = suite.now.AddDate(0, 0, -1)
	_, err := suite.tasks.Create(suite.ctx, actor, input)
	suite.True(errors.Is(err, ErrValidation))

	input.DutyDate = project.DutyDate.AddDate(0, 0, 1)
	_, err = suite.tasks.Create(suite.ctx, actor, input)
	suite.True(errors.Is(err, ErrValidation))

	input.DutyDate = suite.now
	task, err := suite.tasks.Create(suite.ctx, actor, input)
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusNew, task.Status)
	suite.Equal(models.TaskPriorityLow, task.Priority)
	suite.Equal(manager.ID, task.ReporterID)
	suite.True(task.DutyDate.Equal(utils.EndOfDay(suite.now)))
}

func (suite *ServiceTestSuite) TestCreateTask_RejectsEmployeesAndInactiveProjects() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")

	input := CreateTaskInput{
		Title:       "Wire racks",
		Description: "all of them",
		DutyDate:    suite.now.AddDate(0, 0, 3),
		ProjectID:   project.ID,
	}

	_, err := suite.tasks.Create(suite.ctx, suite.actor(ann), input)
	suite.True(errors.Is(err, ErrForbidden))

	suite.Require().NoError(suite.projects.Deactivate(suite.ctx, suite.actor(manager), project.ID))
	_, err = suite.tasks.Create(suite.ctx, suite.actor(manager), input)
	suite.True(errors.Is(err, ErrValidation))
}

func (suite *ServiceTestSuite) TestUpdateTask_EmployeeMayOnlyChangeStatusOfOwnTask() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID)

	inProgress := models.TaskStatusInProgress
	updated, err := suite.tasks.Update(suite.ctx, suite.actor(ann), task.ID, UpdateTaskInput{Status: &inProgress})
	suite.Require().NoError(err)
	suite.Equal(models.TaskStatusInProgress, updated.Status)

	title := "Rename"
	_, err = suite.tasks.Update(suite.ctx, suite.actor(ann), task.ID, UpdateTaskInput{Title: &title})
	suite.True(errors.Is(err, ErrForbidden))

	_, err = suite.tasks.Update(suite.ctx, suite.actor(bob), task.ID, UpdateTaskInput{Status: &inProgress})
	suite.True(errors.Is(err, ErrForbidden))
}

func (suite *ServiceTestSuite) TestUpdateTask_ImmutableFieldsAndWorkers() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks", ann.ID)
	actor := suite.actor(manager)

	other := "TASK_X_1"
	_, err := suite.tasks.Update(suite.ctx, actor, task.ID, UpdateTaskInput{StringID: &other})
	suite.True(errors.Is(err, ErrValidation))

	same := task.StringID
	workers := []uint64{bob.ID}
	updated, err := suite.tasks.Update(suite.ctx, actor, task.ID, UpdateTaskInput{StringID: &same, Workers: &workers})
	suite.Require().NoError(err)
	suite.Equal([]uint64{bob.ID}, []uint64(updated.Workers))
	suite.Empty(suite.reloadUser(ann.ID).Work)
	suite.Equal([]uint64{task.ID}, []uint64(suite.reloadUser(bob.ID).Work))
}

func (suite *ServiceTestSuite) TestUpdateProject_ShorterDutyDateClampsTasks() {
	manager := suite.seedUser("boss", models.RoleManager)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks")

	due := suite.now.AddDate(0, 0, 2)
	updated, err := suite.projects.Update(suite.ctx, suite.actor(manager), project.ID, UpdateProjectInput{DutyDate: &due})
	suite.Require().NoError(err)
	suite.True(updated.DutyDate.Equal(utils.EndOfDay(due)))
	suite.True(suite.reloadTask(task.ID).DutyDate.Equal(updated.DutyDate))

	past := suite.now.AddDate(0, 0, -3)
	_, err = suite.projects.Update(suite.ctx, suite.actor(manager), project.ID, UpdateProjectInput{DutyDate: &past})
	suite.True(errors.Is(err, ErrValidation))
}

func (suite *ServiceTestSuite) TestCreateProject_ValidatesManager() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)

	_, err := suite.projects.Create(suite.ctx, suite.actor(manager), CreateProjectInput{Title: "Plan", ManagerID: ann.ID})
	suite.True(errors.Is(err, ErrValidation))

	_, err = suite.projects.Create(suite.ctx, suite.actor(manager), CreateProjectInput{Title: "Plan", ManagerID: 999})
	suite.True(errors.Is(err, ErrNotFound))

	due := suite.now.AddDate(0, 0, -1)
	_, err = suite.projects.Create(suite.ctx, suite.actor(manager), CreateProjectInput{Title: "Plan", ManagerID: manager.ID, DutyDate: &due})
	suite.True(errors.Is(err, ErrValidation))

	project, err := suite.projects.Create(suite.ctx, suite.actor(manager), CreateProjectInput{Title: "Plan", ManagerID: manager.ID})
	suite.Require().NoError(err)
	suite.True(project.DutyDate.After(suite.now.Add(27 * 24 * time.Hour)))
}

func (suite *ServiceTestSuite) TestList_EmployeeVisibility() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	p1 := suite.createProject(manager, "Field Lab Build")
	p2 := suite.createProject(manager, "Other Work")
	mine := suite.createTask(manager, p1.ID, "Wire racks", ann.ID)
	suite.createTask(manager, p2.ID, "Mount panels")

	opts := repository.ListOptions{Pagination: utils.NewPaginationParams(1, 20)}
	actor := suite.actor(ann)

	tasks, total, err := suite.tasks.List(suite.ctx, actor, repository.Query{}, opts)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(mine.ID, tasks[0].ID)

	projects, total, err := suite.projects.List(suite.ctx, actor, repository.Query{}, opts)
	suite.Require().NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(p1.ID, projects[0].ID)
	suite.Equal([]uint64{ann.ID}, projects[0].Workers)

	_, _, err = suite.users.List(suite.ctx, actor, repository.Query{}, opts)
	suite.True(errors.Is(err, ErrForbidden))

	_, total, err = suite.tasks.List(suite.ctx, suite.actor(manager), repository.Query{}, opts)
	suite.Require().NoError(err)
	suite.Equal(int64(2), total)
}

func (suite *ServiceTestSuite) TestList_UnknownFilterIsValidationError() {
	manager := suite.seedUser("boss", models.RoleManager)
	query := repository.Query{Filters: []repository.Filter{{Name: "colour", Values: []string{"red"}}}}

	_, _, err := suite.tasks.List(suite.ctx, suite.actor(manager), query, repository.ListOptions{})
	suite.True(errors.Is(err, ErrValidation))
}

func (suite *ServiceTestSuite) TestGenerateTaskDrafts_NotConfigured() {
	manager := suite.seedUser("boss", models.RoleManager)
	project := suite.createProject(manager, "Field Lab Build")

	_, err := suite.projects.GenerateTaskDrafts(suite.ctx, suite.actor(manager), project.ID, "build the lab")
	suite.True(errors.Is(err, ErrAIServiceNotConfigured))
}
