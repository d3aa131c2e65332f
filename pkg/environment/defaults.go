package environment

// DefaultPatterns returns the built-in pattern set used when no user
// configuration exists or when the user resets.
func DefaultPatterns() PatternSet {
	return PatternSet{
		Production:  {`\.prod\.`, `\.production\.`, `^prod\.`, `\.com$`},
		Staging:     {`\.staging\.`, `\.stg\.`, `^staging\.`},
		Development: {`localhost`, `127\.0\.0\.1`, `\.dev$`, `\.local$`, `^dev\.`},
		Test:        {`\.test\.`, `\.qa\.`, `^test\.`},
	}
}
