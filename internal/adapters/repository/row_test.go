package repository

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRow(t *testing.T) {
	Convey("Given a three player game", t, func() {
		g := game("s1", "alice", 10, "bob", 8, "carol", 3)
		row := Row(g)

		Convey("Then it follows the header layout", func() {
			So(len(Header), ShouldEqual, 17)
			So(len(row), ShouldEqual, len(Header))
			So(Header[5], ShouldEqual, "Player_1_Discord")
			So(Header[16], ShouldEqual, "Player_6_VP")
		})

		Convey("Then the game columns are filled", func() {
			So(row[0], ShouldEqual, g.ID)
			So(row[1], ShouldEqual, "2025-03-14")
			So(row[2], ShouldEqual, 3)
			So(row[3], ShouldEqual, 10)
			So(row[4], ShouldEqual, "logger")
		})

		Convey("Then players are in order and unused slots are empty", func() {
			So(row[5:11], ShouldResemble, []any{"alice", 10, "bob", 8, "carol", 3})
			for _, v := range row[11:] {
				So(v, ShouldEqual, "")
			}
		})
	})
}
