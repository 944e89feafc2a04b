package services

import (
	"fmt"
	"hash/fnv"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/pulseworks/pulse-tasks/internal/constants"
	"github.com/pulseworks/pulse-tasks/internal/repository"
	"github.com/pulseworks/pulse-tasks/internal/taskable"
	"gorm.io/gorm"
)

// taskNumberSuffix extracts the trailing sequence integer from a task
// number (PRO1-T001 -> 001).
var taskNumberSuffix = regexp.MustCompile(`T(\d+)$`)

// NumberAllocator generates unique, monotonically increasing task numbers
// per owning entity. Numbers are never reissued, even after deletions.
type NumberAllocator struct{}

// Allocate computes the owner's next task number. The sequence scan holds a
// row lock over the owner's numbered tasks for the span of the enclosing
// transaction, so two concurrent creations never observe the same maximum.
func (NumberAllocator) Allocate(tx *gorm.DB, owner taskable.Entity) (string, error) {
	repo := repository.NewTaskRepository(tx)

	numbers, err := repo.NumberedForOwner(owner.TypeTag(), owner.Key())
	if err != nil {
		return "", fmt.Errorf("failed to scan existing task numbers: %w", err)
	}

	max := 0
	for _, number := range numbers {
		match := taskNumberSuffix.FindStringSubmatch(number)
		if match == nil {
			continue
		}
		seq, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if seq > max {
			max = seq
		}
	}

	return fmt.Sprintf("%s-T%0*d", EntityCode(owner), constants.TaskNumberMinDigits, max+1), nil
}

// EntityCode derives the human-readable prefix of an owner's task numbers:
// the first letters of the display name's first three words plus one digit
// hashed from the entity id. The code is a display aid only; uniqueness
// rests entirely on the trailing sequence integer.
func EntityCode(owner taskable.Entity) string {
	var code strings.Builder

	words := strings.Fields(owner.DisplayName())
	if len(words) > 3 {
		words = words[:3]
	}
	for _, word := range words {
		for _, r := range word {
			if unicode.IsLetter(r) || unicode.IsDigit(r) {
				code.WriteRune(unicode.ToUpper(r))
				break
			}
		}
	}
	if code.Len() == 0 {
		code.WriteByte('X')
	}

	code.WriteString(strconv.Itoa(entityDigit(owner.Key())))
	return code.String()
}

func entityDigit(id uint64) int {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d", id)

	digit := int(h.Sum32() % 100)
	if digit >= 10 {
		digit = digit % 10
	}
	return digit
}
