package sqlinline

const QSelectDefaultModels = `--sql 8fc56f64-bf97-4c10-8303-f939de85f55b
select role, provider, model_id
from ai_models
where is_default = true
  and is_active = true;
`
