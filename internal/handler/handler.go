package handler

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/config"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/domain"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/repository"
	"github.com/sysu-ecnc-dev/duty-roster/backend/internal/roster"
)

type Handler struct {
	validate    *validator.Validate
	config      *config.Config
	repository  *repository.Repository
	assignments *roster.AssignmentService
	requests    *roster.RequestService
	translator  ut.Translator
	mailChannel *amqp.Channel
	redisClient *redis.Client

	Mux *chi.Mux
}

func NewHandler(
	cfg *config.Config,
	repo *repository.Repository,
	assignments *roster.AssignmentService,
	requests *roster.RequestService,
	mailCh *amqp.Channel,
	rdb *redis.Client,
) (*Handler, error) {
	validate := validator.New(validator.WithRequiredStructEnabled())
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:    validate,
		config:      cfg,
		repository:  repo,
		assignments: assignments,
		requests:    requests,
		translator:  trans,
		mailChannel: mailCh,
		redisClient: rdb,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.Route("/reset-password", func(r chi.Router) {
			r.Post("/require", h.RequireResetPassword)
			r.Post("/confirm", h.ConfirmResetPassword)
		})
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/staffs", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/", h.CreateStaff)
			r.Get("/", h.GetAllStaffs)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.staffInfo)
				r.Get("/", h.GetStaffInfo)
			})
		})

		r.Route("/shifts", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/", h.CreateShift)
			r.Get("/", h.ListShifts)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.shiftInfo)
				r.Get("/", h.GetShift)
				r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/publish", h.PublishShift)
				r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/cancel", h.CancelShift)
				r.Get("/assignments", h.ListShiftAssignments)

				// 员工自行报名
				r.With(h.myInfo, h.preventInactiveStaff).Post("/register", h.SelfRegister)
				// 店长手动排班
				r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/manual-assign", h.ManualAssign)
			})
		})

		r.Route("/assignments/{id}", func(r chi.Router) {
			r.Use(h.assignmentInfo)
			r.Get("/", h.GetAssignment)
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/approve", h.ApproveAssignment)
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/reject", h.RejectAssignment)
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Delete("/", h.DeleteAssignment)
			r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/no-show", h.MarkNoShow)

			r.Group(func(r chi.Router) {
				r.Use(h.myInfo, h.preventInactiveStaff)
				r.Post("/unregister", h.Unregister)
				r.Post("/check-in", h.CheckIn)
				r.Post("/check-out", h.CheckOut)
			})
		})

		r.Route("/requests", func(r chi.Router) {
			r.Use(h.myInfo)
			r.With(h.preventInactiveStaff).Post("/", h.CreateRequest)
			r.Get("/", h.GetMyRequests)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.requestInfo)
				r.Get("/", h.GetRequest)
				r.With(h.preventInactiveStaff).Post("/target-accept", h.TargetAccept)
				r.With(h.preventInactiveStaff).Post("/target-reject", h.TargetReject)
				r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/approve", h.ApproveRequest)
				r.With(h.RequiredRole([]domain.Role{domain.RoleManager, domain.RoleAdmin})).Post("/reject", h.RejectRequest)
				r.Post("/cancel", h.CancelRequest)
			})
		})
	})
}
