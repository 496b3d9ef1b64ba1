package scene

import (
	"fmt"
	"math"

	"github.com/ChicagoDave/casemap/pkg/validation"
)

// radiusTolerance absorbs float32 rounding of positions.
const radiusTolerance = 1e-3

// ValidateCloud performs structural validation on renderer buffers. It
// checks buffer alignment, day ordering and that every point lies on the
// globe.
func ValidateCloud(c *Cloud) *validation.Report {
	r := validation.NewReport()

	if c == nil {
		r.AddError(validation.Result{
			Level:   validation.LevelAllocation,
			Message: "point cloud is nil",
		})
		return r
	}

	if !validateLengths(c, r) {
		return r
	}
	validateTimes(c, r)
	validateRadius(c, r)
	validateMetadata(c, r)

	return r
}

func validateLengths(c *Cloud, r *validation.Report) bool {
	n := c.Len()
	lengths := map[Attribute]int{
		AttrPosition:      len(c.Positions),
		AttrConfirmedTime: len(c.ConfirmedTime),
		AttrRecoveredTime: len(c.RecoveredTime),
		AttrDeadTime:      len(c.DeadTime),
	}
	ok := true
	for _, attr := range Attributes {
		want := n
		if attr == AttrPosition {
			want = 3 * n
		}
		if lengths[attr] != want {
			r.AddError(validation.Result{
				Level:       validation.LevelAllocation,
				Message:     fmt.Sprintf("buffer %s has %d values, want %d", attr, lengths[attr], want),
				SpecPath:    string(attr),
				ActualValue: lengths[attr],
				Expected:    fmt.Sprintf("%d", want),
			})
			ok = false
		}
	}
	return ok
}

func validateTimes(c *Cloud, r *validation.Report) {
	for i := 0; i < c.Len(); i++ {
		confirmed := c.ConfirmedTime[i]
		recovered := c.RecoveredTime[i]
		dead := c.DeadTime[i]

		if confirmed < 0 || isInf32(confirmed) || math.IsNaN(float64(confirmed)) {
			r.AddError(validation.Result{
				Level:       validation.LevelAllocation,
				Message:     fmt.Sprintf("point %d has invalid confirmed day %v", i, confirmed),
				SpecPath:    fmt.Sprintf("%s[%d]", AttrConfirmedTime, i),
				ActualValue: confirmed,
				Expected:    "finite day >= 0",
			})
			continue
		}
		if !isInf32(recovered) && !isInf32(dead) {
			r.AddError(validation.Result{
				Level:        validation.LevelAllocation,
				Message:      fmt.Sprintf("point %d both recovered (day %v) and died (day %v)", i, recovered, dead),
				SpecPath:     fmt.Sprintf("%s[%d]", AttrDeadTime, i),
				ConflictWith: fmt.Sprintf("%s[%d]", AttrRecoveredTime, i),
			})
		}
		// The allocator may hand an outcome to a point confirmed later.
		if recovered < confirmed || dead < confirmed {
			r.AddWarning(validation.Result{
				Level:       validation.LevelAllocation,
				Message:     fmt.Sprintf("point %d has an outcome before its confirmation on day %v", i, confirmed),
				SpecPath:    fmt.Sprintf("%s[%d]", AttrConfirmedTime, i),
				ActualValue: confirmed,
			})
		}
	}
}

func validateRadius(c *Cloud, r *validation.Report) {
	want := c.Metadata.Radius
	if want <= 0 {
		return
	}
	for i := 0; i < c.Len(); i++ {
		got := c.Position(i).Length()
		if math.Abs(got-want) > want*radiusTolerance {
			r.AddError(validation.Result{
				Level:       validation.LevelAllocation,
				Message:     fmt.Sprintf("point %d lies at radius %.3f, want %.3f", i, got, want),
				SpecPath:    fmt.Sprintf("%s[%d]", AttrPosition, i),
				ActualValue: got,
			})
			return
		}
	}
}

func validateMetadata(c *Cloud, r *validation.Report) {
	if c.Metadata.Points != c.Len() {
		r.AddWarning(validation.Result{
			Level:       validation.LevelAllocation,
			Message:     fmt.Sprintf("metadata reports %d points, buffers hold %d", c.Metadata.Points, c.Len()),
			SpecPath:    "metadata.points",
			ActualValue: c.Metadata.Points,
		})
	}
	if c.Metadata.Decimation < 1 {
		r.AddWarning(validation.Result{
			Level:       validation.LevelAllocation,
			Message:     "metadata has no decimation factor",
			SpecPath:    "metadata.decimation",
			ActualValue: c.Metadata.Decimation,
		})
	}
}

func isInf32(f float32) bool {
	return math.IsInf(float64(f), 1)
}
