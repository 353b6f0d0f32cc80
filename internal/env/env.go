package env

import "fmt"

type Environment string

const (
	Development Environment = "development"
	Test        Environment = "test"
	Production  Environment = "production"
)

func (e Environment) IsDevelopment() bool { return e == Development }
func (e Environment) IsProduction() bool  { return e == Production }

func (e Environment) Validate() error {
	switch e {
	case Development, Test, Production:
		return nil
	default:
		return fmt.Errorf("invalid environment: %q (valid: development, test, production)", e)
	}
}
