package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks OfficerDirectory,FileStore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"smartgn/internal/files"
	"smartgn/internal/requests/models"
	"smartgn/internal/requests/service/mocks"
	"smartgn/internal/requests/store/memory"
	id "smartgn/pkg/domain"
	dErrors "smartgn/pkg/domain-errors"
	"smartgn/pkg/platform/outbox"
	outboxmemory "smartgn/pkg/platform/outbox/store/memory"
	"smartgn/pkg/platform/sentinel"
	"smartgn/pkg/requestcontext"
	"smartgn/pkg/testutil"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// LifecycleSuite drives the engine over the in-memory store with mocked
// officer lookup and file storage. Every rejected transition must leave the
// stored request and the outbox untouched.
type LifecycleSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	officers *mocks.MockOfficerDirectory
	files    *mocks.MockFileStore
	store    *memory.Store
	events   *outboxmemory.Store
	svc      *Service
	ctx      context.Context
	now      time.Time
	user     id.UserID
	gn       id.OfficerID
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.officers = mocks.NewMockOfficerDirectory(s.ctrl)
	s.files = mocks.NewMockFileStore(s.ctrl)
	s.events = outboxmemory.New()
	s.store = memory.New(s.events)
	s.svc = New(s.store, s.officers, s.files, WithLogger(slog.New(slog.DiscardHandler)))
	s.now = time.Date(2026, 3, 4, 8, 30, 0, 0, time.UTC)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.user = id.NewUserID()
	s.gn = id.NewOfficerID()
}

func (s *LifecycleSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *LifecycleSuite) create() *models.Request {
	s.officers.EXPECT().Exists(gomock.Any(), uuid.UUID(s.gn)).Return(true, nil)
	r, err := s.svc.Create(s.ctx, models.CreateCommand{
		UserID:      s.user,
		OfficerID:   s.gn,
		RequestType: "Character Certificate",
		Description: "job application",
	})
	s.Require().NoError(err)
	return r
}

func (s *LifecycleSuite) eventTypes() []string {
	var out []string
	for _, e := range s.events.Entries() {
		out = append(out, e.EventType)
	}
	return out
}

func (s *LifecycleSuite) TestCreate() {
	s.Run("starts pending with request date defaulted", func() {
		r := s.create()
		s.Equal(models.StatusPending, r.Status)
		s.Equal(s.now, r.RequestDate)
		s.Equal(s.now, r.CreatedAt)
		s.Nil(r.VerificationDate)
		s.Nil(r.CertificateURL)
		s.Contains(s.eventTypes(), models.EventCreated)
	})

	s.Run("explicit request date is kept", func() {
		s.officers.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil)
		date := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
		r, err := s.svc.Create(s.ctx, models.CreateCommand{UserID: s.user, OfficerID: s.gn, RequestType: "x", RequestDate: &date})
		s.Require().NoError(err)
		s.Equal(date, r.RequestDate)
	})

	s.Run("unknown officer is not found", func() {
		s.officers.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, nil)
		_, err := s.svc.Create(s.ctx, models.CreateCommand{UserID: s.user, OfficerID: id.NewOfficerID(), RequestType: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("officer lookup failure is internal", func() {
		s.officers.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))
		_, err := s.svc.Create(s.ctx, models.CreateCommand{UserID: s.user, OfficerID: s.gn, RequestType: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("missing fields are invalid input", func() {
		_, err := s.svc.Create(s.ctx, models.CreateCommand{UserID: s.user, OfficerID: s.gn, RequestType: "   "})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))

		_, err = s.svc.Create(s.ctx, models.CreateCommand{OfficerID: s.gn, RequestType: "x"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func (s *LifecycleSuite) TestCreateMapsMissingReferences() {
	cases := map[string]struct {
		storeErr error
		message  string
	}{
		"officer removed after lookup": {storeErr: fmt.Errorf("insert: %w", sentinel.ErrInvalidInput), message: "officer not found"},
		"citizen does not exist":       {storeErr: fmt.Errorf("insert: %w", sentinel.ErrNotFound), message: "user not found"},
	}
	for name, tc := range cases {
		s.Run(name, func() {
			svc := New(rejectingCreate{Store: s.store, err: tc.storeErr}, s.officers, s.files,
				WithLogger(slog.New(slog.DiscardHandler)))
			s.officers.EXPECT().Exists(gomock.Any(), gomock.Any()).Return(true, nil)

			_, err := svc.Create(s.ctx, models.CreateCommand{UserID: s.user, OfficerID: s.gn, RequestType: "x"})
			s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
			s.Contains(err.Error(), tc.message)
		})
	}
}

// rejectingCreate fails every Create with err.
type rejectingCreate struct {
	*memory.Store
	err error
}

func (r rejectingCreate) Create(context.Context, *models.Request, *outbox.Entry) error {
	return r.err
}

func (s *LifecycleSuite) TestHappyPath() {
	r := s.create()

	verified, err := s.svc.Verify(s.ctx, r.ID, nil)
	s.Require().NoError(err)
	s.Equal(models.StatusVerified, verified.Status)
	s.Require().NotNil(verified.VerificationDate)
	s.Equal(s.now, *verified.VerificationDate)
	s.Nil(verified.CertificateURL)
	s.Equal(r.RequestType, verified.RequestType)
	s.Equal(r.Description, verified.Description)

	completed, err := s.svc.Complete(s.ctx, r.ID, nil)
	s.Require().NoError(err)
	s.Equal(models.StatusCompleted, completed.Status)
	s.Equal(verified.VerificationDate, completed.VerificationDate)
	s.Nil(completed.CertificateURL)

	s.ElementsMatch([]string{models.EventCreated, models.EventVerified, models.EventCompleted}, s.eventTypes())
}

func (s *LifecycleSuite) TestVerify() {
	s.Run("explicit verification date", func() {
		r := s.create()
		date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
		got, err := s.svc.Verify(s.ctx, r.ID, &date)
		s.Require().NoError(err)
		s.Equal(date, *got.VerificationDate)
	})

	s.Run("unknown id", func() {
		_, err := s.svc.Verify(s.ctx, id.NewRequestID(), nil)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("twice is an invalid transition", func() {
		r := s.create()
		_, err := s.svc.Verify(s.ctx, r.ID, nil)
		s.Require().NoError(err)
		_, err = s.svc.Verify(s.ctx, r.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func (s *LifecycleSuite) TestDecline() {
	s.Run("from pending", func() {
		r := s.create()
		got, err := s.svc.Decline(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusDeclined, got.Status)
	})

	s.Run("after verify is an invalid transition", func() {
		r := s.create()
		_, err := s.svc.Verify(s.ctx, r.ID, nil)
		s.Require().NoError(err)

		before := len(s.events.Entries())
		_, err = s.svc.Decline(s.ctx, r.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
		s.Len(s.events.Entries(), before)

		stored, err := s.svc.Get(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusVerified, stored.Status)
	})

	s.Run("unknown id", func() {
		_, err := s.svc.Decline(s.ctx, id.NewRequestID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *LifecycleSuite) TestConcurrentVerifyAndDecline() {
	r := s.create()
	before := len(s.events.Entries())

	res := testutil.RunConcurrent(16, func(i int) error {
		if i%2 == 0 {
			_, err := s.svc.Verify(s.ctx, r.ID, nil)
			return err
		}
		_, err := s.svc.Decline(s.ctx, r.ID)
		return err
	})
	s.Equal(int32(1), res.Successes)
	s.Equal(int32(15), res.Transitions)
	s.Len(s.events.Entries(), before+1)
}

func (s *LifecycleSuite) TestComplete() {
	s.Run("requires verified", func() {
		r := s.create()
		_, err := s.svc.Complete(s.ctx, r.ID, nil)
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("overwrites certificate reference", func() {
		r := s.create()
		_, err := s.svc.Verify(s.ctx, r.ID, nil)
		s.Require().NoError(err)
		ref := "/uploads/certificates/external.pdf"
		got, err := s.svc.Complete(s.ctx, r.ID, &ref)
		s.Require().NoError(err)
		s.Equal(ref, *got.CertificateURL)
	})
}

func (s *LifecycleSuite) expectStore(r *models.Request, ext string) files.Ref {
	name := fmt.Sprintf("certificate-%s-%d.%s", r.ID, s.now.UnixMilli(), ext)
	ref := files.Ref{URL: "/uploads/certificates/" + name, Name: name, Size: 3, Checksum: "abc"}
	s.files.EXPECT().Store(gomock.Any(), "certificates", name, []byte("pdf")).Return(ref, nil)
	return ref
}

func (s *LifecycleSuite) TestAttachCertificate() {
	pdf := models.FileUpload{Filename: "birth.pdf", ContentType: "application/pdf", Content: []byte("pdf")}

	s.Run("from pending forces completed", func() {
		r := s.create()
		ref := s.expectStore(r, "pdf")

		receipt, err := s.svc.AttachCertificate(s.ctx, r.ID, pdf, "")
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, receipt.Status)
		s.Equal(ref.URL, receipt.FilePath)
		s.Equal("Certificate document", receipt.Description)
		s.Equal("birth.pdf", receipt.OriginalFileName)

		stored, err := s.svc.Get(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Equal(models.StatusCompleted, stored.Status)
		s.Equal(ref.URL, *stored.CertificateURL)
	})

	s.Run("re-attaching on completed replaces the reference", func() {
		r := s.create()
		s.expectStore(r, "pdf")
		_, err := s.svc.AttachCertificate(s.ctx, r.ID, pdf, "")
		s.Require().NoError(err)

		later := s.now.Add(time.Minute)
		ctx := requestcontext.WithTime(context.Background(), later)
		name := fmt.Sprintf("certificate-%s-%d.png", r.ID, later.UnixMilli())
		s.files.EXPECT().Store(gomock.Any(), "certificates", name, []byte("png")).
			Return(files.Ref{URL: "/uploads/certificates/" + name, Name: name}, nil)

		receipt, err := s.svc.AttachCertificate(ctx, r.ID,
			models.FileUpload{Filename: "scan.png", ContentType: "image/png", Content: []byte("png")}, "replacement")
		s.Require().NoError(err)
		s.Equal("replacement", receipt.Description)

		stored, _ := s.svc.Get(s.ctx, r.ID)
		s.Equal("/uploads/certificates/"+name, *stored.CertificateURL)
	})

	s.Run("declined is an invalid transition and stores nothing", func() {
		r := s.create()
		_, err := s.svc.Decline(s.ctx, r.ID)
		s.Require().NoError(err)

		_, err = s.svc.AttachCertificate(s.ctx, r.ID, pdf, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	s.Run("text/plain is invalid input in every state", func() {
		text := models.FileUpload{Filename: "a.txt", ContentType: "text/plain", Content: []byte("hi")}
		pending := s.create()
		declined := s.create()
		_, err := s.svc.Decline(s.ctx, declined.ID)
		s.Require().NoError(err)

		for _, requestID := range []id.RequestID{pending.ID, declined.ID, id.NewRequestID()} {
			_, err := s.svc.AttachCertificate(s.ctx, requestID, text, "")
			s.True(dErrors.HasCode(err, dErrors.CodeInvalidInput), requestID.String())
		}
	})

	s.Run("unknown id", func() {
		_, err := s.svc.AttachCertificate(s.ctx, id.NewRequestID(), pdf, "")
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("storage failure is internal", func() {
		r := s.create()
		s.files.EXPECT().Store(gomock.Any(), "certificates", gomock.Any(), gomock.Any()).
			Return(files.Ref{}, errors.New("disk full"))
		_, err := s.svc.AttachCertificate(s.ctx, r.ID, pdf, "")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *LifecycleSuite) TestAttachCertificateRemovesFileWhenTransitionFails() {
	r := s.create()
	ref := files.Ref{URL: "/uploads/certificates/c.pdf", Name: "c.pdf"}

	// Another officer declines the request between the pre-check and the locked write.
	s.files.EXPECT().Store(gomock.Any(), "certificates", gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, string, string, []byte) (files.Ref, error) {
			_, err := s.svc.Decline(s.ctx, r.ID)
			s.Require().NoError(err)
			return ref, nil
		})
	s.files.EXPECT().Remove(gomock.Any(), ref).Return(nil)

	_, err := s.svc.AttachCertificate(s.ctx, r.ID,
		models.FileUpload{Filename: "c.pdf", ContentType: "application/pdf", Content: []byte("pdf")}, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))
}

func (s *LifecycleSuite) TestAttachDocument() {
	r := s.create()
	s.files.EXPECT().Store(gomock.Any(), "documents", gomock.Any(), []byte("doc")).
		DoAndReturn(func(_ context.Context, _, name string, content []byte) (files.Ref, error) {
			return files.Ref{URL: "/uploads/documents/" + name, Name: name, Size: int64(len(content))}, nil
		})

	receipt, err := s.svc.AttachDocument(s.ctx, r.ID, models.FileUpload{Filename: "nic.png", Content: []byte("doc")}, "")
	s.Require().NoError(err)
	s.Equal("Supporting document", receipt.Description)
	s.Equal(fmt.Sprintf("document-%s-%d.png", r.ID, s.now.UnixMilli()), receipt.FileName)

	stored, err := s.svc.Get(s.ctx, r.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusPending, stored.Status, "documents never change status")

	_, err = s.svc.AttachDocument(s.ctx, id.NewRequestID(), models.FileUpload{Content: []byte("doc")}, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *LifecycleSuite) TestReads() {
	mine := s.create()
	s.user = id.NewUserID()
	theirs := s.create()

	got, err := s.svc.GetForUser(s.ctx, theirs.ID, s.user)
	s.Require().NoError(err)
	s.Equal(theirs.ID, got.ID)

	_, err = s.svc.GetForUser(s.ctx, mine.ID, s.user)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound), "another citizen's request is hidden")

	all, err := s.svc.ListAll(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 2)

	list, err := s.svc.ListByUser(s.ctx, s.user)
	s.Require().NoError(err)
	s.Require().Len(list, 1)
	s.Equal(theirs.ID, list[0].ID)
}

func (s *LifecycleSuite) TestEventPayloadCarriesState() {
	r := s.create()
	_, err := s.svc.Verify(s.ctx, r.ID, nil)
	s.Require().NoError(err)

	var verified models.Event
	for _, e := range s.events.Entries() {
		if e.EventType == models.EventVerified {
			s.Require().NoError(json.Unmarshal(e.Payload, &verified))
		}
	}
	s.Equal(r.ID.String(), verified.RequestID)
	s.Equal(models.StatusVerified, verified.Status)
	s.Require().NotNil(verified.VerificationDate)
}
