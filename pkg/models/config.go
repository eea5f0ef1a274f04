package models

type Config struct {
    Snowflake Snowflake `yaml:"snowflake"`
    Server    Server    `yaml:"server"`
    Pipeline  Pipeline  `yaml:"pipeline"`
}

type Snowflake struct {
    Account       string `yaml:"account"`
    Username      string `yaml:"username"`
    Password      string `yaml:"password"`
    Role          string `yaml:"role"`
    Warehouse     string `yaml:"warehouse"`
    Database      string `yaml:"database"`
    SchemaRaw     string `yaml:"schema_raw"`
    SchemaCurated string `yaml:"schema_curated"`
    // TokenPath points at an OAuth token file when running inside
    // Snowpark Container Services; when the file exists it takes
    // precedence over Password.
    TokenPath string `yaml:"token_path"`
}

type Server struct {
    ListenAddr string `yaml:"listen_addr"`
}

type Pipeline struct {
    // Schedule is a standard cron expression for periodic INCREMENTAL
    // runs. Empty disables the in-process scheduler.
    Schedule string `yaml:"schedule"`
}
