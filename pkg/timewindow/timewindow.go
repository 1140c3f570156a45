package timewindow

import (
	"errors"
	"sort"
	"time"
)

var ErrInvalidWindow = errors.New("начало окна должно быть строго раньше его конца")

// Window — полуоткрытый интервал времени [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

func New(start, end time.Time) (Window, error) {
	if !start.Before(end) {
		return Window{}, ErrInvalidWindow
	}
	return Window{Start: start, End: end}, nil
}

func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}

// Overlaps — пересечение полуоткрытых интервалов; касание границами
// пересечением не считается.
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && other.Start.Before(w.End)
}

// Contains — true, если inner целиком лежит внутри w.
func (w Window) Contains(inner Window) bool {
	return !inner.Start.Before(w.Start) && !w.End.Before(inner.End)
}

// Subtract возвращает свободные под-интервалы блока после удаления всех
// занятых окон. Занятые окна могут быть не отсортированы и пересекаться
// между собой; вырожденные (нулевой длины) результаты отбрасываются.
func Subtract(block Window, occupied []Window) []Window {
	if len(occupied) == 0 {
		return []Window{block}
	}

	sorted := make([]Window, len(occupied))
	copy(sorted, occupied)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Start.Before(sorted[j].Start)
	})

	free := make([]Window, 0, len(sorted)+1)
	cursor := block.Start

	for _, occ := range sorted {
		if !occ.End.After(cursor) {
			continue
		}
		if !occ.Start.Before(block.End) {
			break
		}

		if occ.Start.After(cursor) {
			end := occ.Start
			if end.After(block.End) {
				end = block.End
			}
			if cursor.Before(end) {
				free = append(free, Window{Start: cursor, End: end})
			}
		}

		if occ.End.After(cursor) {
			cursor = occ.End
		}
		if !cursor.Before(block.End) {
			return free
		}
	}

	if cursor.Before(block.End) {
		free = append(free, Window{Start: cursor, End: block.End})
	}

	return free
}

// Split нарезает окно на последовательные слоты фиксированной длины.
// Неполный хвост короче size отбрасывается.
func Split(w Window, size time.Duration) []Window {
	if size <= 0 {
		return nil
	}

	slots := make([]Window, 0, int(w.Duration()/size))
	for start := w.Start; !start.Add(size).After(w.End); start = start.Add(size) {
		slots = append(slots, Window{Start: start, End: start.Add(size)})
	}

	return slots
}
