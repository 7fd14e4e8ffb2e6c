package identity_test

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/tally/internal/adapters/repository"
	"github.com/okian/tally/internal/domain/identity"
	"github.com/okian/tally/internal/domain/model"
)

type profiles struct {
	users map[string]model.User
	err   error
}

func (p profiles) GetProfile(_ context.Context, id string) (model.User, error) {
	if p.err != nil {
		return model.User{}, p.err
	}
	u, ok := p.users[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func TestResolve(t *testing.T) {
	Convey("Given an issuer and a resolver sharing a secret", t, func() {
		ctx := context.Background()
		judge := model.User{ID: "j1", Name: "Judge One", Role: model.RoleJudge, AssignedEventID: "quiz-a"}
		store := profiles{users: map[string]model.User{"j1": {ID: "j1", Name: "Judge One", Role: model.RoleJudge, AssignedEventID: "dance"}}}
		issuer := identity.NewIssuer("secret")
		token, err := issuer.Issue(judge, time.Hour)
		So(err, ShouldBeNil)

		Convey("When the profile is available", func() {
			id, err := identity.NewResolver("secret", store).Resolve(ctx, "Bearer "+token)

			Convey("Then the stored profile wins over the claims", func() {
				So(err, ShouldBeNil)
				So(id.Degraded, ShouldBeFalse)
				So(id.AssignedEventID, ShouldEqual, "dance")
			})
		})

		Convey("When the profile lookup fails", func() {
			id, err := identity.NewResolver("secret", profiles{err: errors.New("store down")}).Resolve(ctx, token)

			Convey("Then a degraded identity is built from the claims", func() {
				So(err, ShouldBeNil)
				So(id, ShouldResemble, identity.Identity{
					UserID: "j1", Name: "Judge One", Role: model.RoleJudge, AssignedEventID: "quiz-a", Degraded: true,
				})
			})
		})

		Convey("When the profile no longer exists", func() {
			ghost := model.User{ID: "gone", Name: "Removed", Role: model.RoleJudge, AssignedEventID: "quiz-a"}
			stale, err := issuer.Issue(ghost, time.Hour)
			So(err, ShouldBeNil)
			_, err = identity.NewResolver("secret", store).Resolve(ctx, stale)

			Convey("Then the token grants nothing", func() {
				So(errors.Is(err, identity.ErrUnauthenticated), ShouldBeTrue)
			})
		})

		Convey("When the token is signed with another secret", func() {
			_, err := identity.NewResolver("other", store).Resolve(ctx, token)
			So(errors.Is(err, identity.ErrUnauthenticated), ShouldBeTrue)
		})

		Convey("When the token is missing or garbage", func() {
			r := identity.NewResolver("secret", store)
			_, err := r.Resolve(ctx, "")
			So(errors.Is(err, identity.ErrUnauthenticated), ShouldBeTrue)
			_, err = r.Resolve(ctx, "Bearer not-a-token")
			So(errors.Is(err, identity.ErrUnauthenticated), ShouldBeTrue)
		})

		Convey("When the token has expired", func() {
			r := identity.NewResolver("secret", store, identity.WithClock(func() time.Time { return time.Now().Add(2 * time.Hour) }))
			_, err := r.Resolve(ctx, token)
			So(errors.Is(err, identity.ErrUnauthenticated), ShouldBeTrue)
		})
	})
}

func TestAuthorize(t *testing.T) {
	Convey("Given identities with different roles", t, func() {
		judge := identity.Identity{UserID: "j1", Role: model.RoleJudge, AssignedEventID: "quiz-a"}
		admin := identity.Identity{UserID: "a1", Role: model.RoleEventAdmin, AssignedEventID: "quiz-a"}
		root := identity.Identity{UserID: "root", Role: model.RoleSuperAdmin}

		Convey("Then only the assigned judge may submit", func() {
			So(identity.AuthorizeSubmission(judge, "quiz-a"), ShouldBeNil)
			So(errors.Is(identity.AuthorizeSubmission(judge, "dance"), identity.ErrForbidden), ShouldBeTrue)
			So(errors.Is(identity.AuthorizeSubmission(admin, "quiz-a"), identity.ErrForbidden), ShouldBeTrue)
		})

		Convey("Then admins are scoped to their event", func() {
			So(identity.AuthorizeAdmin(root, ""), ShouldBeNil)
			So(identity.AuthorizeAdmin(admin, "quiz-a"), ShouldBeNil)
			So(errors.Is(identity.AuthorizeAdmin(admin, ""), identity.ErrForbidden), ShouldBeTrue)
			So(errors.Is(identity.AuthorizeAdmin(judge, "quiz-a"), identity.ErrForbidden), ShouldBeTrue)
		})
	})
}
