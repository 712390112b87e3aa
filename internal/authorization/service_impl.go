package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/ledgerly/ledgerly/internal/audit/domain"
	"github.com/ledgerly/ledgerly/internal/authcontext"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectClient    = "client"
	ObjectInvoice   = "invoice"
	ObjectPayment   = "payment"
	ObjectCurrency  = "currency"
	ObjectDashboard = "dashboard"
	ObjectExport    = "export"
	ObjectEmail     = "email"
	ObjectAuditLog  = "audit_log"
	ObjectProfile   = "profile"
	ObjectUser      = "user"
)

const (
	ActionView   = "view"
	ActionCreate = "create"
	ActionUpdate = "update"
	ActionDelete = "delete"
	ActionSend   = "send"
	ActionImport = "import"
	ActionManage = "manage"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, caller authcontext.Caller, object string, action string) error {
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}
	if caller.UserID == 0 {
		return ErrInvalidActor
	}

	subject := fmt.Sprintf("user:%s", caller.UserID)
	roleName := fmt.Sprintf("role:%s", strings.ToLower(string(caller.Role)))

	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.auditDenied(ctx, caller, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps the subject bound to exactly one role so that role
// changes on the user record take effect on the next request.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, caller authcontext.Caller, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	actorID := caller.UserID.String()
	targetID := "capability"
	_ = s.auditSvc.AuditLog(ctx, "user", &actorID, "authorization.denied", "authorization", &targetID, map[string]any{
		"object": object,
		"action": action,
		"role":   string(caller.Role),
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	policies := [][]string{
		// Admins manage everything.
		{"role:admin", ObjectClient, "*"},
		{"role:admin", ObjectInvoice, "*"},
		{"role:admin", ObjectPayment, "*"},
		{"role:admin", ObjectCurrency, "*"},
		{"role:admin", ObjectDashboard, "*"},
		{"role:admin", ObjectExport, "*"},
		{"role:admin", ObjectEmail, "*"},
		{"role:admin", ObjectAuditLog, "*"},
		{"role:admin", ObjectProfile, "*"},
		{"role:admin", ObjectUser, "*"},

		// Clients see their own slice of the ledger. Record-level scoping is
		// enforced again inside the services.
		{"role:client", ObjectClient, ActionView},
		{"role:client", ObjectInvoice, ActionView},
		{"role:client", ObjectPayment, ActionView},
		{"role:client", ObjectCurrency, ActionView},
		{"role:client", ObjectDashboard, ActionView},
		{"role:client", ObjectProfile, ActionManage},
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy[0], policy[1], policy[2]); err != nil {
			return err
		}
	}
	return nil
}
