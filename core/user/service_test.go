package user_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/LeahNg97/KOLP-sub001/core"
	"github.com/LeahNg97/KOLP-sub001/core/user"
	emailsvc "github.com/LeahNg97/KOLP-sub001/services/email"
	"github.com/LeahNg97/KOLP-sub001/storage/database/inmem"
	testutil "github.com/LeahNg97/KOLP-sub001/tests"
)

func setup(t *testing.T) (*user.Service, user.Repository) {
	t.Helper()
	repo := inmem.NewUserRepository(inmem.NewStore())
	return user.NewService(repo, emailsvc.NewConsoleServiceMock()), repo
}

func TestService_Create(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	before := len(emailsvc.SentMessages)
	usr, err := svc.Create(ctx, user.NewUser{
		Name:            "Awe Mbuyi",
		Username:        "awemby",
		Email:           "awe@test.cd",
		Password:        "supersecret",
		PasswordConfirm: "supersecret",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if usr.ID == "" || usr.IsActive == nil || !*usr.IsActive {
		t.Errorf("Create() = %+v, want active persisted user", usr)
	}
	// callers that omit roles get the student portal
	if len(usr.Roles) != 1 || usr.Roles[0] != user.RoleStudent {
		t.Errorf("Roles = %v, want [%v]", usr.Roles, user.RoleStudent)
	}
	if err = usr.CheckPassword("supersecret"); err != nil {
		t.Errorf("CheckPassword() error = %v", err)
	}
	if len(emailsvc.SentMessages) != before+1 {
		t.Errorf("welcome email not sent; %v messages, want %v", len(emailsvc.SentMessages), before+1)
	}
}

func TestNewUser_Validate_uniqueness(t *testing.T) {
	svc, repo := setup(t)
	validate, translator := core.NewValidator()
	user.RegisterCustomValidators(validate, translator)

	testutil.CreateUser(t, repo, "Awe", "awemby", "awe@test.cd", "", nil, true)

	tests := []struct {
		name string
		nu   user.NewUser
		ok   bool
	}{
		{
			name: "duplicate username",
			nu:   user.NewUser{Name: "B", Username: "awemby", Email: "b@test.cd", Password: "supersecret", PasswordConfirm: "supersecret"},
		},
		{
			name: "duplicate email",
			nu:   user.NewUser{Name: "B", Username: "othername", Email: "awe@test.cd", Password: "supersecret", PasswordConfirm: "supersecret"},
		},
		{
			name: "fresh user",
			nu:   user.NewUser{Name: "B", Username: "othername", Email: "b@test.cd", Password: "supersecret", PasswordConfirm: "supersecret"},
			ok:   true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.nu.Validate(validate, svc)
			if tt.ok && err != nil {
				t.Errorf("Validate() error = %v", err)
			}
			if !tt.ok {
				var vErr *core.ValidationError
				if !errors.As(err, &vErr) {
					t.Errorf("Validate() error = %v, want validation error", err)
				}
			}
		})
	}
}

func TestService_Update(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Awe", "awemby", "awe@test.cd", "oldpassword", nil, true)

	inactive := false
	updated, err := svc.Update(ctx, usr.ID, user.UpdateUser{
		Name:     "Awe M.",
		IsActive: &inactive,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if updated.Name != "Awe M." {
		t.Errorf("Name = %v, want Awe M.", updated.Name)
	}
	if updated.IsActive == nil || *updated.IsActive {
		t.Error("IsActive = true, want false")
	}
	// untouched fields survive the partial update
	if updated.Username != usr.Username || updated.Email != usr.Email {
		t.Errorf("Update() = %+v, want username/email unchanged", updated)
	}
}

func TestService_Query(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, repo, "Awe", "awemby", "awe@test.cd", "", []string{user.RoleStudent}, true)
	testutil.CreateUser(t, repo, "Teach", "teacher", "teach@test.cd", "", []string{user.RoleTeacher}, true)
	testutil.CreateUser(t, repo, "Sleeper", "sleeper", "zzz@test.cd", "", []string{user.RoleStudent}, false)

	active := true
	tests := []struct {
		name   string
		filter *user.QueryFilter
		want   int
	}{
		{name: "all", filter: nil, want: 3},
		{name: "search", filter: &user.QueryFilter{Search: "awe"}, want: 1},
		{name: "by role", filter: &user.QueryFilter{Roles: []string{user.RoleStudent}}, want: 2},
		{name: "active students", filter: &user.QueryFilter{Roles: []string{user.RoleStudent}, IsActive: &active}, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users, err := svc.Query(ctx, tt.filter, nil)
			if err != nil {
				t.Fatalf("Query() error = %v", err)
			}
			if len(users) != tt.want {
				t.Errorf("Query() returned %v users, want %v", len(users), tt.want)
			}
		})
	}
}

func TestService_Delete(t *testing.T) {
	svc, repo := setup(t)
	ctx := context.Background()

	usr := testutil.CreateUser(t, repo, "Awe", "awemby", "awe@test.cd", "", nil, true)
	if err := svc.Delete(ctx, usr.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := svc.GetByID(ctx, usr.ID); errors.Cause(err) != user.ErrNotFound {
		t.Errorf("GetByID() error = %v, want %v", err, user.ErrNotFound)
	}
}
