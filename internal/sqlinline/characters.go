package sqlinline

const QInsertCharacter = `--sql 2ee53ee8-b8fe-472f-9f88-c5eca6fd1aa1
insert into characters (id, short_id, position, name, description, visual_prompt, role, created_at)
values ($1::uuid, $2::uuid, $3::int, $4::text, $5::text, $6::text, $7::text, now());
`

const QSelectCharactersByShort = `--sql 3ca530b3-e039-4dda-8539-92045e852c3a
select id::text, name, description, visual_prompt, role
from characters
where short_id = $1::uuid
order by position asc;
`
