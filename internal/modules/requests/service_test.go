package requests

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"campus-dispatch/internal/models"
	"campus-dispatch/internal/modules/fleet"
)

// recordingAudit captures audit entries for assertions.
type recordingAudit struct {
	mu      sync.Mutex
	entries []string // "ACTION/entity: details"
}

func (a *recordingAudit) Record(ctx context.Context, action, entity string, actor models.Session, details string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, fmt.Sprintf("%s/%s: %s", action, entity, details))
}

func (a *recordingAudit) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.entries...)
}

// recordingNotifier captures outgoing emails; failNext simulates an email
// provider outage.
type recordingNotifier struct {
	created  []string // request ids
	statuses []string // "id:status"
	failNext bool
}

func (n *recordingNotifier) SendRequestCreated(ctx context.Context, req *models.Request) error {
	if n.failNext {
		n.failNext = false
		return errors.New("smtp unreachable")
	}
	n.created = append(n.created, req.ID)
	return nil
}

func (n *recordingNotifier) SendRequestStatus(ctx context.Context, req *models.Request) error {
	if n.failNext {
		n.failNext = false
		return errors.New("smtp unreachable")
	}
	n.statuses = append(n.statuses, req.ID+":"+req.Status)
	return nil
}

var (
	staffSession = models.Session{UserID: "u1", FullName: "Staff Member", Role: models.RoleStaff, AAL: models.AAL1}
	adminSession = models.Session{UserID: "u2", FullName: "Console Admin", Role: models.RoleAdmin, AAL: models.AAL2}
)

type fixture struct {
	svc       *Service
	repo      *MemoryRepository
	fleetSvc  *fleet.Service
	fleetRepo *fleet.MemoryRepository
	audit     *recordingAudit
	notifier  *recordingNotifier
}

func newFixture() *fixture {
	aud := &recordingAudit{}
	fleetRepo := fleet.NewMemoryRepository()
	fleetSvc := fleet.NewService(fleetRepo, aud)
	repo := NewMemoryRepository()
	notifier := &recordingNotifier{}
	return &fixture{
		svc:       NewService(repo, fleetSvc, aud, notifier),
		repo:      repo,
		fleetSvc:  fleetSvc,
		fleetRepo: fleetRepo,
		audit:     aud,
		notifier:  notifier,
	}
}

func (f *fixture) registerDevice(t *testing.T, serial string, capacity float64) *models.Device {
	t.Helper()
	d, err := f.fleetSvc.Register(context.Background(), staffSession, models.RegisterDeviceRequest{
		Model:           "DJI Matrice 300",
		Type:            models.DeviceTypeDrone,
		CapacityKg:      capacity,
		BatteryAutonomy: "55 min",
		SerialNumber:    serial,
	})
	if err != nil {
		t.Fatalf("register device %s: %v", serial, err)
	}
	return d
}

func (f *fixture) createRequest(t *testing.T, weight float64) *models.Request {
	t.Helper()
	req, err := f.svc.Create(context.Background(), staffSession, models.CreateDeliveryRequest{
		RequesterName:    "Juan",
		RequesterSurname: "Perez",
		RequesterEmail:   "juan.perez@javerianacali.edu.co",
		Origin:           "Edificio administrativo",
		Destination:      "Biblioteca",
		WeightKg:         weight,
		Size:             "20x20x20",
		Type:             models.RequestTypeSmallPackage,
	})
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	return req
}

func (f *fixture) deviceStatus(t *testing.T, id string) string {
	t.Helper()
	d, err := f.fleetRepo.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find device %s: %v", id, err)
	}
	return d.Status
}

func TestCreateRequestPendingWithCode(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)

	req := f.createRequest(t, 2)
	if req.Status != models.RequestStatusPending {
		t.Errorf("new request status = %s; want pending", req.Status)
	}
	if !strings.HasPrefix(req.VerificationCode, "QR-") {
		t.Errorf("verification code = %q; want QR- prefix", req.VerificationCode)
	}
	if req.AssignedDeviceID != nil {
		t.Error("new request already has a device linked")
	}
	if len(f.notifier.created) != 1 {
		t.Errorf("created emails = %d; want 1", len(f.notifier.created))
	}
}

func TestCreateRequestRejectsUnknownLocation(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)

	_, err := f.svc.Create(context.Background(), staffSession, models.CreateDeliveryRequest{
		RequesterName:    "Juan",
		RequesterSurname: "Perez",
		RequesterEmail:   "juan.perez@javerianacali.edu.co",
		Origin:           "Parking lot 7",
		Destination:      "Biblioteca",
		WeightKg:         1,
		Size:             "10x5x1",
		Type:             models.RequestTypeDocument,
	})
	if !errors.Is(err, models.ErrValidation) {
		t.Errorf("unknown origin error = %v; want ErrValidation", err)
	}
}

func TestCreateRequestCapacityInfeasible(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)

	_, err := f.svc.Create(context.Background(), staffSession, models.CreateDeliveryRequest{
		RequesterName:    "Maria",
		RequesterSurname: "Gonzalez",
		RequesterEmail:   "maria.gonzalez@javerianacali.edu.co",
		Origin:           "Biblioteca",
		Destination:      "Capilla",
		WeightKg:         10,
		Size:             "40x40x40",
		Type:             models.RequestTypeSmallPackage,
	})
	if !errors.Is(err, models.ErrNoCapableDevice) {
		t.Fatalf("infeasible weight error = %v; want ErrNoCapableDevice", err)
	}

	// The request must not have been created.
	out, _ := f.svc.List(context.Background(), models.RequestFilter{})
	if len(out) != 0 {
		t.Errorf("request collection has %d entries; want 0", len(out))
	}
}

func TestCreateFeasibilityIgnoresDeviceStatus(t *testing.T) {
	f := newFixture()
	d := f.registerDevice(t, "S1", 3)
	if err := f.fleetSvc.SetStatus(context.Background(), staffSession, d.ID, models.DeviceStatusMaintenance); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}

	// Feasibility counts busy/maintenance devices too.
	req := f.createRequest(t, 2)
	if req.Status != models.RequestStatusPending {
		t.Errorf("status = %s; want pending", req.Status)
	}
}

func TestAssignClaimsDeviceAndLinks(t *testing.T) {
	f := newFixture()
	d := f.registerDevice(t, "S1", 3)
	req := f.createRequest(t, 2)

	updated, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusAssigned})
	if err != nil {
		t.Fatalf("Transition(assigned): %v", err)
	}
	if updated.Status != models.RequestStatusAssigned {
		t.Errorf("status = %s; want assigned", updated.Status)
	}
	if updated.AssignedDeviceID == nil || *updated.AssignedDeviceID != d.ID {
		t.Errorf("assigned_device_id = %v; want %s", updated.AssignedDeviceID, d.ID)
	}
	if got := f.deviceStatus(t, d.ID); got != models.DeviceStatusBusy {
		t.Errorf("device status = %s; want busy", got)
	}
	if len(f.notifier.statuses) != 1 || f.notifier.statuses[0] != req.ID+":assigned" {
		t.Errorf("status emails = %v; want one assigned email", f.notifier.statuses)
	}
}

func TestAssignNoAvailableDeviceLeavesRequestUnchanged(t *testing.T) {
	f := newFixture()
	d := f.registerDevice(t, "S1", 3)
	if err := f.fleetSvc.SetStatus(context.Background(), staffSession, d.ID, models.DeviceStatusBusy); err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	req := f.createRequest(t, 2)

	_, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusAssigned})
	if !errors.Is(err, models.ErrNoAvailableDevice) {
		t.Fatalf("assign error = %v; want ErrNoAvailableDevice", err)
	}

	got, _ := f.repo.FindByID(context.Background(), req.ID)
	if got.Status != models.RequestStatusPending || got.AssignedDeviceID != nil {
		t.Errorf("request mutated on failed assignment: status=%s device=%v", got.Status, got.AssignedDeviceID)
	}
	if status := f.deviceStatus(t, d.ID); status != models.DeviceStatusBusy {
		t.Errorf("device status = %s; want unchanged busy", status)
	}
}

func TestDeliveredFreesDeviceAndKeepsLink(t *testing.T) {
	f := newFixture()
	d := f.registerDevice(t, "S1", 3)
	req := f.createRequest(t, 2)

	if _, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusAssigned}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	updated, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusDelivered})
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if got := f.deviceStatus(t, d.ID); got != models.DeviceStatusAvailable {
		t.Errorf("device status after delivery = %s; want available", got)
	}
	// The link stays as assignment history.
	if updated.AssignedDeviceID == nil || *updated.AssignedDeviceID != d.ID {
		t.Errorf("assigned_device_id after delivery = %v; want %s", updated.AssignedDeviceID, d.ID)
	}
}

func TestFirstFitAcrossSequentialAssignments(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)
	f.registerDevice(t, "S2", 3)
	r1 := f.createRequest(t, 2)
	r2 := f.createRequest(t, 2)
	r3 := f.createRequest(t, 2)

	a1, err := f.svc.Transition(context.Background(), staffSession, r1.ID, models.TransitionRequest{Status: models.RequestStatusAssigned})
	if err != nil {
		t.Fatalf("assign r1: %v", err)
	}
	a2, err := f.svc.Transition(context.Background(), staffSession, r2.ID, models.TransitionRequest{Status: models.RequestStatusAssigned})
	if err != nil {
		t.Fatalf("assign r2: %v", err)
	}
	if *a1.AssignedDeviceID == *a2.AssignedDeviceID {
		t.Error("two requests claimed the same device")
	}

	_, err = f.svc.Transition(context.Background(), staffSession, r3.ID, models.TransitionRequest{Status: models.RequestStatusAssigned})
	if !errors.Is(err, models.ErrNoAvailableDevice) {
		t.Errorf("assign r3 with both devices busy = %v; want ErrNoAvailableDevice", err)
	}
}

func TestTransitionUnknownRequest(t *testing.T) {
	f := newFixture()
	_, err := f.svc.Transition(context.Background(), staffSession, "missing", models.TransitionRequest{Status: models.RequestStatusCancelled})
	if !errors.Is(err, models.ErrNotFound) {
		t.Errorf("transition unknown request = %v; want ErrNotFound", err)
	}
}

func TestTransitionTableEnforced(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)
	req := f.createRequest(t, 2)

	// pending -> delivered is off the table.
	_, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusDelivered})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("pending->delivered = %v; want ErrInvalidTransition", err)
	}

	// force by a non-admin is refused.
	_, err = f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusDelivered, Force: true})
	if !errors.Is(err, models.ErrForbidden) {
		t.Errorf("forced transition by staff = %v; want ErrForbidden", err)
	}

	// an admin can force the same edge.
	updated, err := f.svc.Transition(context.Background(), adminSession, req.ID, models.TransitionRequest{Status: models.RequestStatusDelivered, Force: true})
	if err != nil {
		t.Fatalf("forced transition by admin: %v", err)
	}
	if updated.Status != models.RequestStatusDelivered {
		t.Errorf("status = %s; want delivered", updated.Status)
	}
}

func TestCancelFromPending(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)
	req := f.createRequest(t, 2)

	updated, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusCancelled})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if updated.Status != models.RequestStatusCancelled {
		t.Errorf("status = %s; want cancelled", updated.Status)
	}

	// cancelled is terminal.
	_, err = f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusAssigned})
	if !errors.Is(err, models.ErrInvalidTransition) {
		t.Errorf("cancelled->assigned = %v; want ErrInvalidTransition", err)
	}
}

func TestNotifierFailureDoesNotBlockMutation(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)
	req := f.createRequest(t, 2)

	f.notifier.failNext = true
	updated, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusAssigned})
	if err != nil {
		t.Fatalf("transition with failing notifier: %v", err)
	}
	if updated.Status != models.RequestStatusAssigned {
		t.Errorf("status = %s; want assigned despite email failure", updated.Status)
	}
}

func TestAuditEntriesPerOperation(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3) // 1 entry: CREATE/devices
	req := f.createRequest(t, 2) // 1 entry: CREATE/requests

	// Assignment records both the device claim and the request change.
	if _, err := f.svc.Transition(context.Background(), staffSession, req.ID, models.TransitionRequest{Status: models.RequestStatusAssigned}); err != nil {
		t.Fatalf("assign: %v", err)
	}

	entries := f.audit.all()
	if len(entries) != 4 {
		t.Fatalf("audit entries = %d (%v); want 4", len(entries), entries)
	}
	if !strings.HasPrefix(entries[0], "CREATE/devices") ||
		!strings.HasPrefix(entries[1], "CREATE/requests") ||
		!strings.HasPrefix(entries[2], "UPDATE/devices") ||
		!strings.HasPrefix(entries[3], "UPDATE/requests") {
		t.Errorf("unexpected audit sequence: %v", entries)
	}
}

func TestListNewestFirstWithFilters(t *testing.T) {
	f := newFixture()
	f.registerDevice(t, "S1", 3)
	r1 := f.createRequest(t, 2)
	r2 := f.createRequest(t, 1)

	out, err := f.svc.List(context.Background(), models.RequestFilter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(out) != 2 || out[0].ID != r2.ID || out[1].ID != r1.ID {
		t.Errorf("list order wrong: got %d entries", len(out))
	}

	filtered, _ := f.svc.List(context.Background(), models.RequestFilter{Status: models.RequestStatusPending, Search: "biblio"})
	if len(filtered) != 2 {
		t.Errorf("filtered list = %d entries; want 2", len(filtered))
	}
	none, _ := f.svc.List(context.Background(), models.RequestFilter{Search: "capilla"})
	if len(none) != 0 {
		t.Errorf("search miss returned %d entries; want 0", len(none))
	}
}
