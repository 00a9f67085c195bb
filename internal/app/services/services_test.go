package services

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/yigit/uniadmit/internal/app/models"
	"github.com/yigit/uniadmit/internal/app/models/dto"
	"github.com/yigit/uniadmit/internal/app/notifications"
	"github.com/yigit/uniadmit/internal/app/repositories"
	"github.com/yigit/uniadmit/internal/app/repositories/inmem"
	"github.com/yigit/uniadmit/internal/pkg/auth"
	"github.com/yigit/uniadmit/internal/pkg/filestorage"
	"github.com/yigit/uniadmit/internal/pkg/letter"
	"github.com/yigit/uniadmit/internal/pkg/paystack"
)

type recordingQueue struct {
	mu   sync.Mutex
	msgs []notifications.Message
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, msgs ...notifications.Message) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.msgs = append(q.msgs, msgs...)
	return nil
}

func (q *recordingQueue) kinds() []notifications.Kind {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]notifications.Kind, 0, len(q.msgs))
	for _, m := range q.msgs {
		out = append(out, m.Kind)
	}
	return out
}

func (q *recordingQueue) last() notifications.Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.msgs[len(q.msgs)-1]
}

type stubRenderer struct {
	calls int
	err   error
}

func (r *stubRenderer) Render(data letter.Data) ([]byte, error) {
	r.calls++
	if r.err != nil {
		return nil, r.err
	}
	if err := data.Validate(); err != nil {
		return nil, err
	}
	return []byte("%PDF-1.3 " + data.SystemID), nil
}

type fakeGateway struct {
	mu           sync.Mutex
	initialized  []paystack.InitializeRequest
	transactions map[string]*paystack.Transaction
	initErr      error
	verifyErr    error
	verifyCalls  int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{transactions: map[string]*paystack.Transaction{}}
}

func (g *fakeGateway) Initialize(_ context.Context, req paystack.InitializeRequest) (*paystack.InitializeResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.initErr != nil {
		return nil, g.initErr
	}
	g.initialized = append(g.initialized, req)
	return &paystack.InitializeResponse{
		AuthorizationURL: "https://checkout.example/" + req.Reference,
		AccessCode:       "code",
		Reference:        req.Reference,
	}, nil
}

func (g *fakeGateway) Verify(_ context.Context, reference string) (*paystack.Transaction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return nil, g.verifyErr
	}
	txn, ok := g.transactions[reference]
	if !ok {
		return nil, errors.New("unknown reference")
	}
	c := *txn
	return &c, nil
}

// settle makes the gateway report reference as paid with amount
func (g *fakeGateway) settle(reference string, amount int64, status string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	paidAt := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	g.transactions[reference] = &paystack.Transaction{
		Reference:       reference,
		Status:          status,
		Amount:          amount,
		GatewayResponse: "Approved",
		PaidAt:          &paidAt,
	}
}

const webhookSecret = "sk_test_secret"

type testEnv struct {
	store        *inmem.Store
	repos        *repositories.Repositories
	queue        *recordingQueue
	storage      *filestorage.LocalStorage
	renderer     *stubRenderer
	gateway      *fakeGateway
	auth         *AuthService
	vouchers     *VoucherService
	applications *ApplicationService
	admissions   *AdmissionService
	grading      *GradingService
	courses      *CourseService
	invoices     *InvoiceService
	programs     *ProgramService
	settings     *SettingService
	payments     *PaymentService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	auth.BcryptCost = 4

	store := inmem.New()
	repos := store.Repositories()
	storage, err := filestorage.NewLocalStorage(t.TempDir(), "/uploads")
	require.NoError(t, err)

	log := zerolog.Nop()
	env := &testEnv{
		store:    store,
		repos:    repos,
		queue:    &recordingQueue{},
		storage:  storage,
		renderer: &stubRenderer{},
		gateway:  newFakeGateway(),
	}
	jwtService := auth.NewJWTService(auth.JWTConfig{
		SecretKey:       "test-secret",
		AccessTokenExp:  15 * time.Minute,
		RefreshTokenExp: 24 * time.Hour,
		TokenIssuer:     "uniadmit-test",
	})
	env.auth = NewAuthService(store, repos, jwtService, log)
	env.vouchers = NewVoucherService(store, repos, VoucherConfig{Validity: 30 * 24 * time.Hour, SerialRetries: 5}, log)
	env.applications = NewApplicationService(store, repos, storage, env.queue, 5<<20, log)
	env.admissions = NewAdmissionService(store, repos, storage, env.renderer, env.queue, 5, log)
	env.grading = NewGradingService(repos, log)
	env.courses = NewCourseService(store, repos, log)
	env.invoices = NewInvoiceService(repos, log)
	env.programs = NewProgramService(repos, log)
	env.settings = NewSettingService(repos, log)
	env.payments = NewPaymentService(store, repos, env.gateway, env.vouchers, env.invoices, env.queue, PaymentConfig{
		SecretKey:     webhookSecret,
		CallbackURL:   "https://apply.example/payments/callback",
		VoucherPrices: map[models.VoucherType]int64{models.VoucherUndergraduate: 15000},
	}, log)

	require.NoError(t, repos.Settings.Upsert(context.Background(), map[string]string{
		models.SettingIDPrefix:        "UNI",
		models.SettingCurrency:        "GHS",
		models.SettingInstitutionName: "Test University",
		models.SettingAcademicYear:    "2025/2026",
	}))
	return env
}

func (e *testEnv) program(t *testing.T, code string, fee int64) *models.Program {
	t.Helper()
	p, err := e.programs.Create(context.Background(), &dto.ProgramRequest{
		Code: code, Name: "BSc " + code, Faculty: "Science", DurationYears: 4, Fee: fee,
	})
	require.NoError(t, err)
	return p
}

// soldVoucher sells one voucher through the online path
func (e *testEnv) soldVoucher(t *testing.T) *models.Voucher {
	t.Helper()
	v, err := e.vouchers.Sell(context.Background(), SellRequest{
		BuyerEmail:       "buyer@example.com",
		Type:             models.VoucherUndergraduate,
		Price:            15000,
		GatewayReference: "VCH-" + uuid.New().String(),
	})
	require.NoError(t, err)
	return v
}

func registerRequest(v *models.Voucher, email, username string) *dto.RegisterApplicantRequest {
	return &dto.RegisterApplicantRequest{
		SerialNumber: v.SerialNumber,
		PIN:          v.PIN,
		Email:        email,
		Username:     username,
		Password:     "secret123",
		FirstName:    "Ama",
		LastName:     "Mensah",
		Phone:        "+233200000001",
	}
}

func (e *testEnv) applicant(t *testing.T, email, username string) *dto.AuthResponse {
	t.Helper()
	resp, err := e.auth.RegisterApplicant(context.Background(), registerRequest(e.soldVoucher(t), email, username))
	require.NoError(t, err)
	return resp
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func jpegBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(1, 1, color.RGBA{B: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func fileHeader(t *testing.T, name string, content []byte) *multipart.FileHeader {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	form, err := multipart.NewReader(&buf, w.Boundary()).ReadForm(1 << 20)
	require.NoError(t, err)
	t.Cleanup(func() { _ = form.RemoveAll() })
	return form.File["file"][0]
}

// submitted fills, submits and documents the application of accountID
func (e *testEnv) submitted(t *testing.T, accountID, programID int64) *dto.ApplicationResponse {
	t.Helper()
	ctx := context.Background()
	_, err := e.applications.SaveDraft(ctx, accountID, &dto.SaveApplicationRequest{
		FirstName:     "Ama",
		LastName:      "Mensah",
		FirstChoiceID: &programID,
		ExamSittings: []models.ExamSitting{{
			ExamType:    "WASSCE",
			IndexNumber: "1234567890",
			ExamYear:    2024,
			Subjects:    []models.SubjectGrade{{Subject: "Mathematics", Grade: "A1"}},
		}},
	})
	require.NoError(t, err)

	_, err = e.applications.AttachDocument(ctx, accountID, models.DocumentResultSlip, fileHeader(t, "slip.pdf", []byte("%PDF-1.4 slip")))
	require.NoError(t, err)
	_, err = e.applications.AttachDocument(ctx, accountID, models.DocumentBirthCertificate, fileHeader(t, "birth.pdf", []byte("%PDF-1.4 birth")))
	require.NoError(t, err)
	_, err = e.applications.AttachDocument(ctx, accountID, models.DocumentPassportPhoto, fileHeader(t, "photo.png", pngBytes(t)))
	require.NoError(t, err)

	resp, err := e.applications.Submit(ctx, accountID)
	require.NoError(t, err)
	return resp
}

// sequence returns a generator yielding the given codes in order, then
// falling back to fallback
func sequence(fallback func(int) (string, error), codes ...string) func(int) (string, error) {
	var mu sync.Mutex
	i := 0
	return func(n int) (string, error) {
		mu.Lock()
		defer mu.Unlock()
		if i < len(codes) {
			c := codes[i]
			i++
			return c, nil
		}
		return fallback(n)
	}
}
