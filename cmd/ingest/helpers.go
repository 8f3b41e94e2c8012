package main

import "github.com/postcode-lookup/pipeline/internal/repositories/datasourcerepo"

func datasourceUpdate() datasourcerepo.Update {
	return datasourcerepo.Update{}
}

func datasourceHash(digest string) datasourcerepo.Update {
	return datasourcerepo.Update{FileHash: &digest}
}

func datasourceError(message string) datasourcerepo.Update {
	return datasourcerepo.Update{ErrorMessage: &message}
}

func datasourceCount(count int64) datasourcerepo.Update {
	return datasourcerepo.Update{RecordCount: &count}
}
