package service

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riobizsols/assetledger/internal/db"
	"github.com/riobizsols/assetledger/internal/model"
	"github.com/riobizsols/assetledger/internal/store"
)

func ptr[T any](v T) *T { return &v }

// recordingLogger keeps every event it receives.
type recordingLogger struct {
	mu     sync.Mutex
	events []Event
}

func (l *recordingLogger) LogEvent(_ context.Context, e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	return nil
}

func (l *recordingLogger) steps() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.events {
		out = append(out, e.Step)
	}
	return out
}

type panickingLogger struct{}

func (panickingLogger) LogEvent(context.Context, Event) error { panic("sink down") }

type failingLogger struct{}

func (failingLogger) LogEvent(context.Context, Event) error { return errors.New("sink down") }

func seed(t *testing.T) *sql.DB {
	t.Helper()
	database := db.NewTestDB(t)
	ctx := context.Background()

	_, err := store.CreateOrganization(ctx, database, "ORG001", "Acme")
	require.NoError(t, err)
	_, err = store.CreateDepartment(ctx, database, model.Department{ID: "D1", OrgID: "ORG001", Name: "IT"})
	require.NoError(t, err)
	_, err = store.CreateEmployee(ctx, database, model.Employee{ID: "E50", OrgID: "ORG001", EmpCode: "EMP050", Name: "Ana"})
	require.NoError(t, err)
	_, err = store.CreateEmployee(ctx, database, model.Employee{ID: "E51", OrgID: "ORG001", EmpCode: "EMP051", Name: "Bor"})
	require.NoError(t, err)
	_, err = store.CreateAssetType(ctx, database, model.AssetType{ID: "AT01", OrgID: "ORG001", Name: "Laptop", AssignmentType: model.AssignmentTypeUser})
	require.NoError(t, err)
	_, err = store.CreateAssetType(ctx, database, model.AssetType{ID: "AT02", OrgID: "ORG001", Name: "Printer", AssignmentType: model.AssignmentTypeDepartment})
	require.NoError(t, err)
	for _, a := range []model.Asset{
		{ID: "A100", OrgID: "ORG001", AssetTypeID: "AT01", Name: "Laptop 1"},
		{ID: "A101", OrgID: "ORG001", AssetTypeID: "AT01", Name: "Laptop 2"},
		{ID: "A200", OrgID: "ORG001", AssetTypeID: "AT02", Name: "Printer 1"},
	} {
		_, err = store.CreateAsset(ctx, database, a)
		require.NoError(t, err)
	}
	return database
}

func assign(id, asset string, dept, emp *string, latest bool) AssignRequest {
	return AssignRequest{
		AssignmentID: id,
		AssetID:      asset,
		OrgID:        "ORG001",
		DepartmentID: dept,
		EmployeeID:   emp,
		Latest:       &latest,
		Actor:        "admin",
	}
}

func countAssignments(t *testing.T, database *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, database.QueryRow(`SELECT COUNT(*) FROM asset_assignments`).Scan(&n))
	return n
}

func TestAssignAssetScenario(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)

	res, err := svc.AssignAsset(context.Background(), assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)

	assert.Equal(t, model.AssignmentTypeUser, res.AssignmentType)
	assert.Equal(t, "A100", res.Assignment.AssetID)
	require.NotNil(t, res.Assignment.EmployeeID)
	assert.Equal(t, "E50", *res.Assignment.EmployeeID)
	assert.Equal(t, model.ActionActive, res.Assignment.Action)
	assert.True(t, res.Assignment.Latest)
	assert.Equal(t, "admin", res.Assignment.ActionBy)
}

func TestAssignAssetDepartmentTypeDropsEmployee(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)

	res, err := svc.AssignAsset(context.Background(), assign("ASG1", "A200", ptr("D1"), ptr("E50"), true))
	require.NoError(t, err)

	assert.Equal(t, model.AssignmentTypeDepartment, res.AssignmentType)
	assert.Nil(t, res.Assignment.EmployeeID)
	require.NotNil(t, res.Assignment.DepartmentID)
	assert.Equal(t, "D1", *res.Assignment.DepartmentID)

	stored, err := store.GetAssignment(context.Background(), database, "ASG1")
	require.NoError(t, err)
	assert.Nil(t, stored.EmployeeID)
}

func TestAssignAssetUserTypeRequiresEmployee(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)

	_, err := svc.AssignAsset(context.Background(), assign("ASG1", "A100", ptr("D1"), nil, true))
	require.ErrorIs(t, err, store.ErrMissingActor)
	assert.Equal(t, 0, countAssignments(t, database))
}

func TestAssignAssetDepartmentTypeRequiresDepartment(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)

	_, err := svc.AssignAsset(context.Background(), assign("ASG1", "A200", nil, ptr("E50"), true))
	require.ErrorIs(t, err, store.ErrMissingActor)
	assert.Equal(t, 0, countAssignments(t, database))
}

func TestAssignAssetDuplicate(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)
	_, err = svc.AssignAsset(ctx, assign("ASG1", "A101", nil, ptr("E51"), true))
	require.ErrorIs(t, err, store.ErrDuplicateIdentifier)

	assert.Equal(t, 1, countAssignments(t, database))
	// The failed attempt must not have cleared anything.
	first, _ := store.GetAssignment(ctx, database, "ASG1")
	assert.True(t, first.Latest)
}

func TestAssignAssetValidation(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	noLatest := assign("ASG1", "A100", nil, ptr("E50"), true)
	noLatest.Latest = nil
	_, err := svc.AssignAsset(ctx, noLatest)
	require.ErrorIs(t, err, store.ErrValidation)

	noHolder := assign("ASG1", "A100", nil, nil, true)
	_, err = svc.AssignAsset(ctx, noHolder)
	require.ErrorIs(t, err, store.ErrValidation)

	noID := assign("", "A100", nil, ptr("E50"), true)
	_, err = svc.AssignAsset(ctx, noID)
	require.ErrorIs(t, err, store.ErrValidation)

	badAction := assign("ASG1", "A100", nil, ptr("E50"), true)
	badAction.Action = "Z"
	_, err = svc.AssignAsset(ctx, badAction)
	require.ErrorIs(t, err, store.ErrValidation)

	// false is an explicit, accepted value.
	res, err := svc.AssignAsset(ctx, assign("ASG2", "A100", nil, ptr("E50"), false))
	require.NoError(t, err)
	assert.False(t, res.Assignment.Latest)
}

func TestAssignAssetNotConfigured(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)

	_, err := svc.AssignAsset(context.Background(), assign("ASG1", "A999", nil, ptr("E50"), true))
	require.ErrorIs(t, err, store.ErrAssetNotConfigured)
}

func TestAssignAssetClearsStaleLatest(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)

	res, err := svc.AssignAsset(ctx, assign("ASG2", "A100", nil, ptr("E51"), true))
	require.NoError(t, err)
	require.Len(t, res.Superseded, 1)
	assert.Equal(t, "ASG1", res.Superseded[0].ID)

	current, err := store.ListAssignments(ctx, database, store.AssignmentFilter{AssetID: "A100", CurrentOnly: true})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "ASG2", current[0].ID)
}

func TestAssignToEmployeeSkipsTypeCheck(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	// A200 is department-assigned, but the direct path does not consult the type.
	res, err := svc.AssignToEmployee(ctx, assign("ASG1", "A200", nil, ptr("E50"), true))
	require.NoError(t, err)
	require.NotNil(t, res.Assignment.EmployeeID)
	assert.Equal(t, "E50", *res.Assignment.EmployeeID)

	_, err = svc.AssignToEmployee(ctx, assign("ASG2", "A100", ptr("D1"), nil, true))
	require.ErrorIs(t, err, store.ErrMissingActor)
}

func TestUpdateAssignmentUnassign(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	created, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)

	res, err := svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{
		Action: ptr(model.ActionCancelled),
		Latest: ptr(false),
	}, "manager")
	require.NoError(t, err)

	assert.Equal(t, model.ScopeEmployee, res.Scope)
	assert.Equal(t, model.ActionCancelled, res.Assignment.Action)
	assert.False(t, res.Assignment.Latest)
	assert.Equal(t, "manager", res.Assignment.ActionBy)
	assert.True(t, res.Assignment.AssignedOn.Equal(created.Assignment.AssignedOn))

	active, err := svc.ActiveForEmployee(ctx, "E50")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUpdateAssignmentScope(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A200", ptr("D1"), nil, true))
	require.NoError(t, err)

	res, err := svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{Action: ptr(model.ActionCancelled)}, "admin")
	require.NoError(t, err)
	assert.Equal(t, model.ScopeDepartment, res.Scope)

	res, err = svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{EmployeeID: ptr("E50")}, "admin")
	require.NoError(t, err)
	assert.Equal(t, model.ScopeEmployee, res.Scope)
}

func TestUpdateAssignmentNotFound(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)

	_, err := svc.UpdateAssignment(context.Background(), "NOPE", model.AssignmentPatch{Action: ptr(model.ActionCancelled)}, "admin")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestUpdateAssignmentReactivateClearsOthers(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), false))
	require.NoError(t, err)
	_, err = svc.AssignAsset(ctx, assign("ASG2", "A100", nil, ptr("E51"), true))
	require.NoError(t, err)

	_, err = svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{Latest: ptr(true)}, "admin")
	require.NoError(t, err)

	current, err := store.ListAssignments(ctx, database, store.AssignmentFilter{AssetID: "A100", CurrentOnly: true})
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, "ASG1", current[0].ID)
}

func currentHolders(t *testing.T, database *sql.DB, assetID string) []model.Assignment {
	t.Helper()
	current, err := store.ListAssignments(context.Background(), database, store.AssignmentFilter{AssetID: assetID, CurrentOnly: true})
	require.NoError(t, err)
	return current
}

func TestUpdateAssignmentReactivationKeepsSingleHolder(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)
	// Unassigning without touching the flag leaves latest set on ASG1.
	_, err = svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{Action: ptr(model.ActionCancelled)}, "admin")
	require.NoError(t, err)
	_, err = svc.AssignAsset(ctx, assign("ASG2", "A100", nil, ptr("E51"), true))
	require.NoError(t, err)

	res, err := svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{Action: ptr(model.ActionActive)}, "admin")
	require.NoError(t, err)
	assert.True(t, res.Assignment.Latest)

	current := currentHolders(t, database, "A100")
	require.Len(t, current, 1)
	assert.Equal(t, "ASG1", current[0].ID)

	second, err := store.GetAssignment(ctx, database, "ASG2")
	require.NoError(t, err)
	assert.False(t, second.Latest)
}

func TestUpdateAssignmentMoveKeepsSingleHolder(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)
	_, err = svc.AssignAsset(ctx, assign("ASG2", "A101", nil, ptr("E51"), true))
	require.NoError(t, err)

	res, err := svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{AssetID: ptr("A101")}, "admin")
	require.NoError(t, err)
	assert.Equal(t, "A101", res.Assignment.AssetID)
	assert.True(t, res.Assignment.Latest)

	current := currentHolders(t, database, "A101")
	require.Len(t, current, 1)
	assert.Equal(t, "ASG1", current[0].ID)
	assert.Empty(t, currentHolders(t, database, "A100"))
}

func TestUpdateAssignmentUnrelatedFieldKeepsLatest(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)

	res, err := svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{EmployeeID: ptr("E51")}, "admin")
	require.NoError(t, err)
	assert.True(t, res.Assignment.Latest)
	require.Len(t, currentHolders(t, database, "A100"), 1)

	_, err = svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{AssetID: ptr("")}, "admin")
	require.ErrorIs(t, err, store.ErrValidation)
}

func TestAssignmentOrganizationMustMatch(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := store.CreateOrganization(ctx, database, "ORG002", "Other")
	require.NoError(t, err)
	_, err = store.CreateEmployee(ctx, database, model.Employee{ID: "E90", OrgID: "ORG002", EmpCode: "EMP090", Name: "Zala"})
	require.NoError(t, err)

	wrongOrg := assign("ASG1", "A100", nil, ptr("E50"), true)
	wrongOrg.OrgID = "ORG002"
	_, err = svc.AssignAsset(ctx, wrongOrg)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E90"), true))
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = svc.AssignToEmployee(ctx, assign("ASG1", "A100", nil, ptr("E90"), true))
	require.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, 0, countAssignments(t, database))

	_, err = svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)
	_, err = svc.UpdateAssignment(ctx, "ASG1", model.AssignmentPatch{EmployeeID: ptr("E90")}, "admin")
	require.ErrorIs(t, err, store.ErrNotFound)

	row, err := store.GetAssignment(ctx, database, "ASG1")
	require.NoError(t, err)
	assert.Equal(t, "E50", *row.EmployeeID)
}

func TestAssignmentViews(t *testing.T) {
	database := seed(t)
	svc := NewAssignments(database, nil)
	ctx := context.Background()

	_, err := svc.AssignAsset(ctx, assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)
	_, err = svc.AssignAsset(ctx, assign("ASG2", "A200", ptr("D1"), nil, true))
	require.NoError(t, err)

	byCode, err := svc.EmployeeAssignments(ctx, "EMP050", false)
	require.NoError(t, err)
	require.Len(t, byCode, 1)
	assert.Equal(t, "ASG1", byCode[0].ID)

	dept, err := svc.DepartmentAssignments(ctx, "D1", true)
	require.NoError(t, err)
	require.Len(t, dept, 1)
	assert.Equal(t, "ASG2", dept[0].ID)

	history, err := svc.AssetHistory(ctx, "A100")
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = svc.EmployeeAssignments(ctx, "nobody", false)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.DepartmentAssignments(ctx, "D404", false)
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.AssetHistory(ctx, "A999")
	require.ErrorIs(t, err, store.ErrNotFound)
	_, err = svc.GetAssignment(ctx, "NOPE")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestEventsAreEmitted(t *testing.T) {
	database := seed(t)
	logger := &recordingLogger{}
	events := NewDispatcher(logger)
	svc := NewAssignments(database, events)

	_, err := svc.AssignAsset(context.Background(), assign("ASG1", "A100", nil, ptr("E50"), true))
	require.NoError(t, err)
	events.Wait()

	assert.Equal(t, []string{"assignment requested", "assignment created"}, sortedSteps(logger.steps()))
}

func sortedSteps(steps []string) []string {
	// Delivery order across goroutines is not fixed.
	if len(steps) == 2 && steps[0] == "assignment created" {
		steps[0], steps[1] = steps[1], steps[0]
	}
	return steps
}

func TestBrokenEventLoggerDoesNotAffectOutcome(t *testing.T) {
	for name, logger := range map[string]EventLogger{
		"panicking": panickingLogger{},
		"failing":   failingLogger{},
	} {
		t.Run(name, func(t *testing.T) {
			database := seed(t)
			events := NewDispatcher(logger)
			svc := NewAssignments(database, events)

			res, err := svc.AssignAsset(context.Background(), assign("ASG1", "A100", nil, ptr("E50"), true))
			events.Wait()
			require.NoError(t, err)
			assert.Equal(t, "ASG1", res.Assignment.ID)
		})
	}
}

func TestGroupsService(t *testing.T) {
	database := seed(t)
	logger := &recordingLogger{}
	events := NewDispatcher(logger)
	groups := NewGroups(store.NewGroupStore(database, nil), events)
	ctx := context.Background()

	g, err := groups.CreateGroup(ctx, "ORG001", "Printers", []string{"A100", "A101"}, "admin")
	require.NoError(t, err)
	assert.Len(t, g.Members, 2)

	g, err = groups.UpdateGroup(ctx, g.ID, "Printers", []string{"A101"}, "admin")
	require.NoError(t, err)
	assert.Len(t, g.Members, 1)

	a100, err := store.GetAsset(ctx, database, "A100")
	require.NoError(t, err)
	assert.Nil(t, a100.GroupID)

	list, err := groups.ListGroups(ctx, "ORG001")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].MemberCount)

	require.NoError(t, groups.DeleteGroup(ctx, g.ID, "admin"))
	_, err = groups.GetGroup(ctx, g.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
	require.ErrorIs(t, groups.DeleteGroup(ctx, g.ID, "admin"), store.ErrNotFound)

	events.Wait()
	assert.Len(t, logger.steps(), 3)
}
