package govtrack_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/okian/civicrank/internal/adapters/upstream"
	"github.com/okian/civicrank/internal/adapters/upstream/govtrack"
	"github.com/okian/civicrank/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCurrentRoles(t *testing.T) {
	Convey("Given GovTrack serving current senators", t, func() {
		var gotType string
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotType = r.URL.Query().Get("role_type")
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			objects := []map[string]any{}
			if offset == 0 {
				title := "Majority Leader"
				objects = append(objects,
					map[string]any{
						"person":           map[string]any{"id": 400001, "bioguideid": "S000001", "firstname": "Ann", "lastname": "Smith", "name": "Sen. Ann Smith [D-NY]"},
						"party":            "Democrat",
						"state":            "NY",
						"leadership_title": title,
						"role_type":        "senator",
					},
					map[string]any{
						"person":           map[string]any{"id": 400002, "bioguideid": "J000002", "name": "Sen. Bo Jones"},
						"party":            "Republican",
						"state":            "TX",
						"leadership_title": nil,
						"role_type":        "senator",
					},
				)
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"meta":    map[string]any{"total_count": 2},
				"objects": objects,
			})
		}))
		Reset(srv.Close)

		c := govtrack.New(upstream.Config{BaseURL: srv.URL})
		roles, err := c.CurrentRoles(context.Background(), govtrack.RoleTypeFor(model.Senate))

		Convey("Then every role is mapped", func() {
			So(err, ShouldBeNil)
			So(gotType, ShouldEqual, govtrack.RoleSenator)
			So(roles, ShouldHaveLength, 2)
			So(roles[0].BioguideID, ShouldEqual, "S000001")
			So(roles[0].GovTrackID, ShouldEqual, 400001)
			So(roles[0].Name, ShouldEqual, "Ann Smith")
			So(roles[0].LeadershipTitle, ShouldEqual, "Majority Leader")
			So(roles[1].Name, ShouldEqual, "Sen. Bo Jones")
			So(roles[1].LeadershipTitle, ShouldBeEmpty)
		})
	})

	Convey("RoleTypeFor maps chambers", t, func() {
		So(govtrack.RoleTypeFor(model.Senate), ShouldEqual, govtrack.RoleSenator)
		So(govtrack.RoleTypeFor(model.House), ShouldEqual, govtrack.RoleRepresentative)
	})
}
