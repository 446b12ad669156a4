package permissions

import (
	_ "embed"
	"strconv"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

const (
	ActionDecide = "decide"
	ActionEdit   = "edit"
)

// Actor is the signed-in member on whose behalf the workflow runs.
type Actor struct {
	MemberID  int64
	Role      Role
	CompanyID int64
}

func (a Actor) IsZero() bool {
	return a.MemberID == 0 && a.Role == "" && a.CompanyID == 0
}

// Resource carries the ownership attributes the gate looks at.
type Resource struct {
	AuthorMemberID  int64
	ClientCompanyID int64
}

//go:embed model.conf
var modelText string

var enforcer = sync.OnceValues(func() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	return casbin.NewSyncedEnforcer(m)
})

type subject struct {
	Member  string
	Role    string
	Company string
}

type object struct {
	Author        string
	ClientCompany string
}

func idString(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func allowed(actor Actor, res Resource, action string) bool {
	e, err := enforcer()
	if err != nil {
		return false
	}
	ok, err := e.Enforce(
		subject{Member: idString(actor.MemberID), Role: string(actor.Role), Company: idString(actor.CompanyID)},
		object{Author: idString(res.AuthorMemberID), ClientCompany: idString(res.ClientCompanyID)},
		action,
	)
	return err == nil && ok
}

// CanDecide reports whether actor may approve or reject a request owned by
// res: role ADMIN, or the actor's company is the request's client company.
// Status is not part of this rule.
func CanDecide(actor Actor, res Resource) bool {
	return allowed(actor, res, ActionDecide)
}

// CanEdit reports whether actor authored res. Requests and responses are
// editable only by their author.
func CanEdit(actor Actor, res Resource) bool {
	return allowed(actor, res, ActionEdit)
}
