package flatfile_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/okian/flatboard/internal/adapters/flatfile"
	"github.com/okian/flatboard/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestSchemaTable(t *testing.T) {
	Convey("Given the column table", t, func() {
		Convey("Then every column is described in index order", func() {
			So(len(flatfile.Schema), ShouldEqual, flatfile.FieldCount)
			for i, d := range flatfile.Schema {
				So(d.Index, ShouldEqual, i)
				So(d.Name, ShouldNotBeEmpty)
			}
		})

		Convey("Then skill columns match the stored layout", func() {
			So(flatfile.LevelIndex(model.Mining), ShouldEqual, 1)
			So(flatfile.XPIndex(model.Mining), ShouldEqual, 4)
			So(flatfile.LevelIndex(model.Acrobatics), ShouldEqual, 14)
			So(flatfile.XPIndex(model.Acrobatics), ShouldEqual, 22)
			So(flatfile.LevelIndex(model.Crossbows), ShouldEqual, 46)
			So(flatfile.LevelIndex(model.Salvage), ShouldEqual, -1)
			So(flatfile.BarStateIndex(model.Crossbows), ShouldEqual, 64)
			So(flatfile.CooldownIndex(model.BlastMining), ShouldEqual, 36)
			So(flatfile.CooldownIndex(model.TridentSuper), ShouldEqual, 67)
		})

		Convey("Then exactly the legacy columns and uuid may be empty", func() {
			var empty []int
			for _, d := range flatfile.Schema {
				if d.AllowEmpty {
					empty = append(empty, d.Index)
				}
			}
			So(empty, ShouldResemble, []int{2, 3, 23, 33, 41})
		})
	})
}

func TestDecode(t *testing.T) {
	Convey("Given stored lines", t, func() {
		Convey("When decoding a canonical line with a CR", func() {
			f, err := flatfile.Decode(canonicalLine() + "\r")

			Convey("Then every field is returned", func() {
				So(err, ShouldBeNil)
				So(len(f), ShouldEqual, flatfile.FieldCount)
				So(f.Name(), ShouldEqual, "Alice")
				So(f.UUIDField(), ShouldEqual, aliceUUID)
			})
		})

		Convey("When decoding a line without trailing separator", func() {
			f, err := flatfile.Decode(strings.TrimSuffix(canonicalLine(), ":"))
			So(err, ShouldBeNil)
			So(len(f), ShouldEqual, flatfile.FieldCount)
		})

		Convey("When trailing fields are empty", func() {
			f, err := flatfile.Decode("Bob:1:::2:::")
			So(err, ShouldBeNil)
			So([]string(f), ShouldResemble, []string{"Bob", "1", "", "", "2"})
		})

		Convey("When the uuid column is malformed", func() {
			fields := canonicalFields()
			fields[flatfile.FieldUUID] = "not-a-uuid"
			_, err := flatfile.Decode(strings.Join(fields, ":") + ":")

			Convey("Then decoding fails with the record name", func() {
				So(errors.Is(err, flatfile.ErrMalformedUUID), ShouldBeTrue)
				var de *flatfile.DecodeError
				So(errors.As(err, &de), ShouldBeTrue)
				So(de.Name, ShouldEqual, "Alice")
			})
		})

		Convey("When the uuid column holds the sentinel", func() {
			fields := canonicalFields()
			fields[flatfile.FieldUUID] = "NULL"
			_, err := flatfile.Decode(strings.Join(fields, ":") + ":")
			So(err, ShouldBeNil)
		})

		Convey("When the line is empty", func() {
			_, err := flatfile.Decode("\r")
			So(errors.Is(err, flatfile.ErrEmptyLine), ShouldBeTrue)
		})
	})
}

func TestBuildAndEncode(t *testing.T) {
	Convey("Given a canonical line", t, func() {
		f, err := flatfile.Decode(canonicalLine())
		So(err, ShouldBeNil)

		Convey("When building the record", func() {
			r, err := flatfile.Build(f)

			Convey("Then typed values are populated", func() {
				So(err, ShouldBeNil)
				So(r.Name, ShouldEqual, "Alice")
				So(r.UUID, ShouldResemble, uuid.MustParse(aliceUUID))
				So(r.Levels[model.Mining], ShouldEqual, 20)
				So(r.Experience[model.Mining], ShouldEqual, float32(12.5))
				So(r.Levels[model.Acrobatics], ShouldEqual, 8)
				So(r.Levels[model.Crossbows], ShouldEqual, 13)
				So(r.LastLogin, ShouldEqual, 1700000000)
				So(r.Healthbar, ShouldEqual, model.HealthbarHearts)
				So(r.BarStates[model.Salvage], ShouldEqual, model.BarDisabled)
				So(r.BarStates[model.Mining], ShouldEqual, model.BarNormal)
			})

			Convey("Then encoding reproduces the line byte for byte", func() {
				So(flatfile.Encode(r), ShouldEqual, canonicalLine())
			})
		})

		Convey("When the list has the wrong width", func() {
			_, err := flatfile.Build(f[:40])
			So(errors.Is(err, flatfile.ErrBuildRecord), ShouldBeTrue)
		})

		Convey("When a level is not a number", func() {
			g := f.Clone()
			g[1] = "x"
			_, err := flatfile.Build(g)
			So(errors.Is(err, flatfile.ErrBuildRecord), ShouldBeTrue)
		})
	})

	Convey("Given a new record without identity", t, func() {
		r := model.NewRecord("Carol", uuid.Nil, 0, model.HealthbarBar)
		line := flatfile.Encode(r)

		Convey("Then it encodes all columns with the sentinel uuid", func() {
			f, err := flatfile.Decode(line)
			So(err, ShouldBeNil)
			So(len(f), ShouldEqual, flatfile.FieldCount)
			So(f[flatfile.FieldUUID], ShouldEqual, flatfile.NullUUID)
			So(f[flatfile.FieldHealthbar], ShouldEqual, "BAR")
			So(strings.HasSuffix(line, ":"), ShouldBeTrue)
			So(strings.Contains(line, "\n"), ShouldBeFalse)
		})
	})

	Convey("Given a zero record", t, func() {
		Convey("Then encoding fills enum defaults", func() {
			f, err := flatfile.Decode(flatfile.Encode(model.Record{Name: "Zed"}))
			So(err, ShouldBeNil)
			So(f[flatfile.FieldHealthbar], ShouldEqual, "HEARTS")
			So(f[flatfile.BarStateIndex(model.Smelting)], ShouldEqual, "DISABLED")
			_, err = flatfile.Build(f)
			So(err, ShouldBeNil)
		})
	})
}
