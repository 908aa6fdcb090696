// Package idformat turns accession IDs into display values. Classification
// and formatting are pure functions over a closed set of kinds.
package idformat

import (
	"fmt"
	"regexp"
	"strings"
)

// Kind is the formatting family of an accession ID.
type Kind int

const (
	Generic Kind = iota
	MGI
	PubMed
	DOI
	GenBank
	RefSeq
	Ensembl
	EntrezGene
	UniProt
	Ontology
)

var kindNames = [...]string{
	Generic:    "generic",
	MGI:        "mgi",
	PubMed:     "pubmed",
	DOI:        "doi",
	GenBank:    "genbank",
	RefSeq:     "refseq",
	Ensembl:    "ensembl",
	EntrezGene: "entrezgene",
	UniProt:    "uniprot",
	Ontology:   "ontology",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Display is a formatted ID.
type Display struct {
	Kind      Kind
	LogicalDB string
	ID        string
	Text      string
	URL       string
}

var curie = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*:[0-9A-Za-z_.]+$`)

// Classify picks the kind for an ID from the object it belongs to, the name
// of its logical database and the ID itself.
func Classify(objectType, logicalDB, accID string) Kind {
	ldb := strings.ToLower(strings.TrimSpace(logicalDB))
	switch {
	case ldb == "mgi" && (strings.HasPrefix(accID, "MGI:") || strings.HasPrefix(accID, "J:")):
		return MGI
	case ldb == "pubmed":
		return PubMed
	case ldb == "doi":
		return DOI
	case ldb == "journal link" && strings.EqualFold(objectType, "reference"):
		return DOI
	case ldb == "genbank" || ldb == "sequence db":
		return GenBank
	case ldb == "refseq":
		return RefSeq
	case strings.HasPrefix(ldb, "ensembl"):
		return Ensembl
	case ldb == "entrez gene":
		return EntrezGene
	case ldb == "swiss-prot" || ldb == "trembl" || ldb == "uniprot":
		return UniProt
	case curie.MatchString(accID):
		return Ontology
	default:
		return Generic
	}
}

// Format renders an ID of the given kind.
func Format(kind Kind, logicalDB, accID string) Display {
	d := Display{Kind: kind, LogicalDB: logicalDB, ID: accID}
	switch kind {
	case MGI:
		d.Text = accID
		d.URL = "http://www.informatics.jax.org/accession/" + accID
	case PubMed:
		d.Text = "PubMed:" + accID
		d.URL = "https://pubmed.ncbi.nlm.nih.gov/" + accID
	case DOI:
		d.Text = "DOI:" + accID
		d.URL = "https://doi.org/" + accID
	case GenBank:
		d.Text = "GenBank:" + accID
		d.URL = "https://www.ncbi.nlm.nih.gov/nuccore/" + accID
	case RefSeq:
		d.Text = "RefSeq:" + accID
		if isProtein(accID) {
			d.URL = "https://www.ncbi.nlm.nih.gov/protein/" + accID
		} else {
			d.URL = "https://www.ncbi.nlm.nih.gov/nuccore/" + accID
		}
	case Ensembl:
		d.Text = "Ensembl:" + accID
		d.URL = "https://www.ensembl.org/id/" + accID
	case EntrezGene:
		d.Text = "NCBI Gene:" + accID
		d.URL = "https://www.ncbi.nlm.nih.gov/gene/" + accID
	case UniProt:
		d.Text = "UniProt:" + accID
		d.URL = "https://www.uniprot.org/uniprot/" + accID
	case Ontology:
		d.Text = accID
		d.URL = "https://identifiers.org/" + accID
	case Generic:
		if logicalDB == "" {
			d.Text = accID
		} else {
			d.Text = logicalDB + ":" + accID
		}
	default:
		panic(fmt.Sprintf("idformat: unhandled kind %v", kind))
	}
	return d
}

// Of classifies and formats in one step.
func Of(objectType, logicalDB, accID string) Display {
	return Format(Classify(objectType, logicalDB, accID), logicalDB, accID)
}

func isProtein(id string) bool {
	return strings.HasPrefix(id, "NP_") || strings.HasPrefix(id, "XP_") || strings.HasPrefix(id, "YP_")
}
