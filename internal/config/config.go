// Package config loads the deposition configuration from the environment.
//
// Parameters are read from environment variables, optionally populated from
// a .env file in the working directory. A different file can be selected
// with the ENV_FILE variable.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds everything needed to generate and send depositions.
type Config struct {
	// Depositor identification sent in every Crossref deposition.
	DepositorName   string
	DepositorEmail  string
	RegistrantName  string
	InstitutionName string

	// Templates for the landing page URLs and titles of deposited reviews
	// and author replies. URL templates substitute $article_doi, $revision
	// and $running_number; title templates substitute $article_title and
	// $review_number.
	ReviewResourceURLTemplate      string
	ReviewTitleTemplate            string
	AuthorReplyResourceURLTemplate string
	AuthorReplyTitleTemplate       string

	// DOITemplate shapes random DOIs for dry runs, with the $year and
	// $random substitution variables.
	DOITemplate string

	// DOIDBFile is the sqlite database holding the pool of registered DOIs.
	DOIDBFile string

	// DBFile is the sqlite batch database of parsed files and attempts.
	DBFile string

	CrossrefDepositionURL string
	CrossrefUsername      string
	CrossrefPassword      string

	// EEBAPIURL is the base URL of the Early Evidence Base API used to
	// verify depositions. Empty selects the production instance.
	EEBAPIURL string

	// PreprintDOIMetaName overrides the article metadata field that carries
	// the preprint DOI.
	PreprintDOIMetaName string

	LogFile  string
	LogLevel string
}

// Load reads the configuration from the environment. A .env file in the
// working directory (or the file named by ENV_FILE) is loaded first;
// variables already set in the environment win.
func Load() (*Config, error) {
	if envFile := os.Getenv("ENV_FILE"); envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading %s: %w", envFile, err)
		}
	} else {
		// missing .env is fine, the environment may be set directly
		godotenv.Load()
	}

	var missing []string
	require := func(name string) string {
		value := os.Getenv(name)
		if value == "" {
			missing = append(missing, name)
		}
		return value
	}

	cfg := &Config{
		DepositorName:                  require("DEPOSITOR_NAME"),
		DepositorEmail:                 require("DEPOSITOR_EMAIL"),
		RegistrantName:                 require("REGISTRANT_NAME"),
		InstitutionName:                require("INSTITUTION_NAME"),
		ReviewResourceURLTemplate:      require("REVIEW_RESOURCE_URL_TEMPLATE"),
		ReviewTitleTemplate:            require("REVIEW_TITLE_TEMPLATE"),
		AuthorReplyResourceURLTemplate: require("AUTHOR_REPLY_RESOURCE_URL_TEMPLATE"),
		AuthorReplyTitleTemplate:       require("AUTHOR_REPLY_TITLE_TEMPLATE"),
		DOITemplate:                    require("DOI_TEMPLATE"),
		DOIDBFile:                      require("DOI_DB_FILE"),
		DBFile:                         require("DB_FILE"),
		CrossrefDepositionURL:          require("CROSSREF_DEPOSITION_URL"),
		CrossrefUsername:               require("CROSSREF_USERNAME"),
		CrossrefPassword:               require("CROSSREF_PASSWORD"),
		EEBAPIURL:                      os.Getenv("EEB_API_URL"),
		PreprintDOIMetaName:            os.Getenv("PREPRINT_DOI_META_NAME"),
		LogFile:                        os.Getenv("LOG_FILE"),
		LogLevel:                       os.Getenv("LOG_LEVEL"),
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}
