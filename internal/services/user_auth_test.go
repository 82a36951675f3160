package services

import (
	"errors"
	"strconv"

	"github.com/yukikurage/workforce-api/internal/identity"
	"github.com/yukikurage/workforce-api/internal/logger"
	"github.com/yukikurage/workforce-api/internal/models"
)

const facePhoto = "data:image/jpeg;base64,/9j/4AAQSkZJRg=="

func (suite *ServiceTestSuite) newUserInput(login string) CreateUserInput {
	return CreateUserInput{
		FirstName:   "Ann",
		LastName:    "Lee",
		Email:       login + "@example.com",
		PhoneNumber: "+10000000001",
		Role:        models.RoleEmployee,
		Login:       login,
		Password:    testPassword,
	}
}

func (suite *ServiceTestSuite) TestCreateUser_StoresCredentialsAndFace() {
	manager := suite.seedUser("boss", models.RoleManager)

	input := suite.newUserInput("ann")
	input.FacePhoto = facePhoto
	result, err := suite.users.Create(suite.ctx, suite.actor(manager), input)
	suite.Require().NoError(err)
	suite.Empty(result.Warnings)

	user := result.User
	suite.True(user.Active)
	suite.NotEmpty(user.QRCode)
	suite.Equal("subject-1-"+strconv.FormatUint(user.ID, 10), user.FaceSubjectID)
	suite.Contains(suite.identity.faces, user.FaceSubjectID)

	creds, err := suite.users.Credentials(suite.ctx, suite.actor(user), user.ID)
	suite.Require().NoError(err)
	suite.Equal(user.QRCode, creds.QRCode)
	suite.Equal(facePhoto, creds.FacePhoto)

	logged, err := suite.auth.Login(suite.ctx, LoginInput{Login: "ann", Password: testPassword})
	suite.Require().NoError(err)
	suite.Equal(user.ID, logged.ID)
}

func (suite *ServiceTestSuite) TestCreateUser_Validation() {
	manager := suite.seedUser("boss", models.RoleManager)
	ann := suite.seedUser("ann", models.RoleEmployee)
	actor := suite.actor(manager)

	_, err := suite.users.Create(suite.ctx, suite.actor(ann), suite.newUserInput("eve"))
	suite.True(errors.Is(err, ErrForbidden))

	_, err = suite.users.Create(suite.ctx, actor, suite.newUserInput("ann"))
	suite.True(errors.Is(err, ErrAlreadyTaken))

	short := suite.newUserInput("eve")
	short.Password = "123"
	_, err = suite.users.Create(suite.ctx, actor, short)
	suite.True(errors.Is(err, ErrValidation))

	badPhoto := suite.newUserInput("eve")
	badPhoto.FacePhoto = "not a data url"
	_, err = suite.users.Create(suite.ctx, actor, badPhoto)
	suite.True(errors.Is(err, ErrValidation))

	admin := suite.newUserInput("eve")
	admin.Role = models.RoleAdmin
	_, err = suite.users.Create(suite.ctx, actor, admin)
	suite.True(errors.Is(err, ErrForbidden))
}

func (suite *ServiceTestSuite) TestCreateUser_IdentityFailureIsAWarning() {
	manager := suite.seedUser("boss", models.RoleManager)
	suite.identity.registerErr = errors.New("service down")

	input := suite.newUserInput("ann")
	input.FacePhoto = facePhoto
	result, err := suite.users.Create(suite.ctx, suite.actor(manager), input)
	suite.Require().NoError(err)
	suite.Len(result.Warnings, 1)
	suite.Contains(result.Warnings[0], "identity")
	suite.Empty(result.User.FaceSubjectID)
}

func (suite *ServiceTestSuite) TestUpdateUser_SelfService() {
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)
	actor := suite.actor(ann)

	email := "NEW@Example.com"
	password := "another-secret"
	result, err := suite.users.Update(suite.ctx, actor, ann.ID, UpdateUserInput{Email: &email, Password: &password})
	suite.Require().NoError(err)
	suite.Equal("new@example.com", result.User.Email)
	suite.NotEmpty(result.User.QRCode)

	_, err = suite.auth.Login(suite.ctx, LoginInput{Login: "ann", Password: password})
	suite.NoError(err)

	role := models.RoleManager
	_, err = suite.users.Update(suite.ctx, actor, ann.ID, UpdateUserInput{Role: &role})
	suite.True(errors.Is(err, ErrForbidden))

	_, err = suite.users.Update(suite.ctx, actor, bob.ID, UpdateUserInput{Email: &email})
	suite.True(errors.Is(err, ErrForbidden))

	login := "ann2"
	_, err = suite.users.Update(suite.ctx, actor, ann.ID, UpdateUserInput{Login: &login})
	suite.True(errors.Is(err, ErrValidation))
}

func (suite *ServiceTestSuite) TestUpdateUser_ReplacesAndRemovesFace() {
	manager := suite.seedUser("boss", models.RoleManager)
	created, err := suite.users.Create(suite.ctx, suite.actor(manager), suite.newUserInput("ann"))
	suite.Require().NoError(err)
	user := created.User
	actor := suite.actor(manager)

	photo := facePhoto
	result, err := suite.users.Update(suite.ctx, actor, user.ID, UpdateUserInput{FacePhoto: &photo})
	suite.Require().NoError(err)
	suite.NotEmpty(result.User.FacePhotoKey)
	suite.Contains(suite.identity.faces, result.User.FaceSubjectID)

	empty := ""
	result, err = suite.users.Update(suite.ctx, actor, user.ID, UpdateUserInput{FacePhoto: &empty})
	suite.Require().NoError(err)
	suite.Empty(result.User.FacePhotoKey)
	suite.NotContains(suite.identity.faces, result.User.FaceSubjectID)

	creds, err := suite.users.Credentials(suite.ctx, actor, user.ID)
	suite.Require().NoError(err)
	suite.Empty(creds.FacePhoto)
}

func (suite *ServiceTestSuite) TestGetUser_EmployeeSeesOnlySelf() {
	ann := suite.seedUser("ann", models.RoleEmployee)
	bob := suite.seedUser("bob", models.RoleEmployee)

	_, err := suite.users.Get(suite.ctx, suite.actor(ann), bob.ID)
	suite.True(errors.Is(err, ErrForbidden))

	self, err := suite.users.Get(suite.ctx, suite.actor(ann), ann.ID)
	suite.Require().NoError(err)
	suite.Equal(ann.ID, self.ID)
}

func (suite *ServiceTestSuite) TestLogin_RejectsWrongPasswordAndInactiveUsers() {
	ann := suite.seedUser("ann", models.RoleEmployee)

	_, err := suite.auth.Login(suite.ctx, LoginInput{Login: "ann", Password: "wrong-password"})
	suite.True(errors.Is(err, ErrInvalidCredentials))

	_, err = suite.auth.Login(suite.ctx, LoginInput{Login: "nobody", Password: testPassword})
	suite.True(errors.Is(err, ErrInvalidCredentials))

	suite.Require().NoError(suite.userRepo.Deactivate(suite.ctx, ann.ID))
	_, err = suite.auth.Login(suite.ctx, LoginInput{Login: "ann", Password: testPassword})
	suite.True(errors.Is(err, ErrInvalidCredentials))
}

func (suite *ServiceTestSuite) TestFaceLogin() {
	manager := suite.seedUser("boss", models.RoleManager)
	input := suite.newUserInput("ann")
	input.FacePhoto = facePhoto
	created, err := suite.users.Create(suite.ctx, suite.actor(manager), input)
	suite.Require().NoError(err)
	subject := created.User.FaceSubjectID

	suite.identity.matches = []identity.Match{{SubjectID: subject, Probability: 0.97}}
	user, probability, err := suite.auth.FaceLogin(suite.ctx, facePhoto)
	suite.Require().NoError(err)
	suite.Equal(created.User.ID, user.ID)
	suite.InDelta(0.97, probability, 1e-9)

	suite.identity.matches = []identity.Match{{SubjectID: subject}, {SubjectID: "someone-else"}}
	_, _, err = suite.auth.FaceLogin(suite.ctx, facePhoto)
	suite.True(errors.Is(err, ErrFaceNotRecognized))

	suite.identity.matches = nil
	_, _, err = suite.auth.FaceLogin(suite.ctx, facePhoto)
	suite.True(errors.Is(err, ErrFaceNotRecognized))

	suite.identity.matches = []identity.Match{{SubjectID: "unknown"}}
	_, _, err = suite.auth.FaceLogin(suite.ctx, facePhoto)
	suite.True(errors.Is(err, ErrFaceNotRecognized))

	_, _, err = suite.auth.FaceLogin(suite.ctx, "")
	suite.True(errors.Is(err, ErrValidation))
}

func (suite *ServiceTestSuite) TestFaceLogin_DisabledProvider() {
	auth := NewAuthService(suite.userRepo, identity.Noop{}, suite.auth.logger)

	_, _, err := auth.FaceLogin(suite.ctx, facePhoto)
	suite.True(errors.Is(err, ErrCollaborator))
	suite.True(errors.Is(err, identity.ErrDisabled))
}

func (suite *ServiceTestSuite) TestCreateUser_WorkAssignmentFailureIsPartial() {
	manager := suite.seedUser("boss", models.RoleManager)
	project := suite.createProject(manager, "Field Lab Build")
	task := suite.createTask(manager, project.ID, "Wire racks")

	// the task goes inactive after the up-front check but before the assignment
	tasks := &hookTaskRepo{TaskRepository: suite.taskRepo}
	tasks.onFindIDs = func() {
		suite.Require().NoError(suite.taskRepo.Deactivate(suite.ctx, task.ID))
	}
	assignments := NewAssignmentManager(suite.userRepo, tasks, suite.locker, logger.NewNop())
	users := NewUserService(suite.userRepo, assignments, suite.deactivator, suite.identity, suite.blobs,
		suite.locker, logger.NewNop())

	input := suite.newUserInput("ann")
	input.Work = []uint64{task.ID}
	_, err := users.Create(suite.ctx, suite.actor(manager), input)
	suite.Require().Error(err)
	suite.True(errors.Is(err, ErrPartialFailure))
	suite.True(errors.Is(err, ErrValidation))

	var partial *PartialFailureError
	suite.Require().True(errors.As(err, &partial))
	suite.Equal("createUser", partial.Operation)
	suite.Equal("assign work", partial.Step)

	// the user row was stored, so repeating the request reports the login as taken
	stored, err := suite.userRepo.FindActiveByLogin(suite.ctx, "ann")
	suite.Require().NoError(err)
	suite.Empty(stored.Work)

	_, err = users.Create(suite.ctx, suite.actor(manager), suite.newUserInput("ann"))
	suite.True(errors.Is(err, ErrAlreadyTaken))
}
