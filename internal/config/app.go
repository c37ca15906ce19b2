package config

type AppConfig struct {
	Server     ServerConfig
	Log        LogConfig
	Tournament TournamentConfig
	Model      ModelConfig
}

func LoadApp() (AppConfig, error) {
	logCfg, err := LoadLog()
	if err != nil {
		return AppConfig{}, err
	}
	serverCfg, err := LoadServer()
	if err != nil {
		return AppConfig{}, err
	}
	tournamentCfg, err := LoadTournament()
	if err != nil {
		return AppConfig{}, err
	}
	modelCfg, err := LoadModel()
	if err != nil {
		return AppConfig{}, err
	}
	return AppConfig{
		Server:     serverCfg,
		Log:        logCfg,
		Tournament: tournamentCfg,
		Model:      modelCfg,
	}, nil
}
