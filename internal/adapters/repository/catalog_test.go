package repository

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/fundora/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

const catalogYAML = `
subjects:
  - snapshot:
      subject_id: acme
      total_assets: 1000
      total_liabilities: 400
      revenue: 1200.5
    profile:
      company_name: Acme
      industry: Fintech
      owner_id: u-owner
      funding_ask: 250000
      data_source_confidence: High
  - snapshot:
      subject_id: globex
      is_projection_based: true
      projected_revenue_final_year: 50
    profile:
      company_name: Globex
`

func TestCatalog(t *testing.T) {
	ctx := context.Background()

	Convey("Given a YAML catalog", t, func() {
		path := filepath.Join(t.TempDir(), "catalog.yaml")
		So(os.WriteFile(path, []byte(catalogYAML), 0o600), ShouldBeNil)

		c, err := LoadCatalog(path)
		So(err, ShouldBeNil)

		Convey("Then subjects load in file order with optional figures", func() {
			list, err := c.List(ctx)
			So(err, ShouldBeNil)
			So(list, ShouldHaveLength, 2)
			So(list[0].Snapshot.SubjectID, ShouldEqual, "acme")
			So(*list[0].Snapshot.TotalAssets, ShouldEqual, 1000)
			So(*list[0].Snapshot.Revenue, ShouldEqual, 1200.5)
			So(list[0].Snapshot.NetIncome, ShouldBeNil)
			So(list[0].Profile.Confidence, ShouldEqual, model.ConfidenceHigh)
			So(list[1].Snapshot.IsProjectionBased, ShouldBeTrue)
		})

		Convey("Then ownership resolves through the profile", func() {
			owner, err := c.OwnerOf(ctx, "acme")
			So(err, ShouldBeNil)
			So(owner, ShouldEqual, "u-owner")
		})

		Convey("Then unknown subjects are not found", func() {
			_, err := c.Get(ctx, "initech")
			So(errors.Is(err, ErrSubjectNotFound), ShouldBeTrue)
			_, err = c.OwnerOf(ctx, "initech")
			So(errors.Is(err, ErrSubjectNotFound), ShouldBeTrue)
		})

		Convey("Then Put appends new subjects and replaces known ones", func() {
			c.Put(model.Subject{Snapshot: model.Snapshot{SubjectID: "initech"}})
			c.Put(model.Subject{Snapshot: model.Snapshot{SubjectID: "acme"}, Profile: model.Profile{CompanyName: "Acme 2"}})
			So(c.Len(), ShouldEqual, 3)
			s, err := c.Get(ctx, "acme")
			So(err, ShouldBeNil)
			So(s.Profile.CompanyName, ShouldEqual, "Acme 2")
		})
	})

	Convey("Given invalid seed data", t, func() {
		_, err := NewMemoryCatalog(model.Subject{})
		So(errors.Is(err, ErrInvalidCatalog), ShouldBeTrue)

		dup := model.Subject{Snapshot: model.Snapshot{SubjectID: "x"}}
		_, err = NewMemoryCatalog(dup, dup)
		So(errors.Is(err, ErrInvalidCatalog), ShouldBeTrue)

		_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
		So(errors.Is(err, ErrInvalidCatalog), ShouldBeTrue)
	})
}
