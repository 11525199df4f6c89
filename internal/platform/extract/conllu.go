package extract

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/yungbote/termbase-backend/internal/domain/glossary"
)

// Word is one syntactic word of a CoNLL-U sentence.
type Word struct {
	ID     int
	Form   string
	Lemma  string
	UPOS   string
	Head   int
	Deprel string
}

type Sentence []Word

// ParseCoNLLU reads sentences from CoNLL-U text. Multiword token ranges and
// empty nodes are skipped.
func ParseCoNLLU(doc string) ([]Sentence, error) {
	var (
		out []Sentence
		cur Sentence
	)
	sc := bufio.NewScanner(strings.NewReader(doc))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(text) == "" {
			if len(cur) > 0 {
				out = append(out, cur)
				cur = nil
			}
			continue
		}
		if strings.HasPrefix(text, "#") {
			continue
		}
		cols := strings.Split(text, "\t")
		if len(cols) < 8 {
			return nil, fmt.Errorf("conllu line %d: want 10 columns, got %d", line, len(cols))
		}
		if strings.ContainsAny(cols[0], "-.") {
			continue
		}
		id, err := strconv.Atoi(cols[0])
		if err != nil {
			return nil, fmt.Errorf("conllu line %d: bad id %q", line, cols[0])
		}
		head, err := strconv.Atoi(cols[6])
		if err != nil {
			return nil, fmt.Errorf("conllu line %d: bad head %q", line, cols[6])
		}
		cur = append(cur, Word{
			ID:     id,
			Form:   cols[1],
			Lemma:  cols[2],
			UPOS:   cols[3],
			Head:   head,
			Deprel: cols[7],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out, nil
}

var (
	subjectRels = map[string]bool{"nsubj": true, "nsubj:pass": true}
	objectRels  = map[string]bool{"obj": true, "iobj": true, "obl": true, "xcomp": true, "attr": true}
)

// Triples applies the root-predicate rule: the sentence root is the
// predicate, its subject dependents are paired with every object dependent,
// and position is the subject's index among the root's subjects.
func Triples(sentences []Sentence) []glossary.Triple {
	out := []glossary.Triple{}
	for _, sent := range sentences {
		var root *Word
		for i := range sent {
			if sent[i].Head == 0 {
				root = &sent[i]
				break
			}
		}
		if root == nil {
			continue
		}
		var subjects, objects []Word
		for _, w := range sent {
			if w.Head != root.ID {
				continue
			}
			switch {
			case subjectRels[w.Deprel]:
				subjects = append(subjects, w)
			case objectRels[w.Deprel]:
				objects = append(objects, w)
			}
		}
		for i, s := range subjects {
			for _, o := range objects {
				out = append(out, glossary.Triple{
					Position:      i,
					Subject:       s.Form,
					SubjectType:   tag(s.UPOS),
					Predicate:     root.Lemma,
					PredicateType: tag(root.UPOS),
					Object:        o.Form,
					ObjectType:    tag(o.UPOS),
				})
			}
		}
	}
	return out
}

func tag(v string) *string {
	if v == "_" {
		return nil
	}
	return glossary.StrPtr(v)
}
